package naming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Directory is the member view the naming components need.
type Directory interface {
	Members() []domain.Member
	Peers() []domain.Member
	Self() domain.Member
	HasMember(addr string) bool
}

// Observer receives anti-entropy events.
type Observer interface {
	ObserveReconcile(result *ReconcileResult)
	ObserveRepair(ok bool)
}

// ReconcileResult summarizes one checksum report.
type ReconcileResult struct {
	Compared   int `json:"compared"`
	Mismatched int `json:"mismatched"`
	Enqueued   int `json:"enqueued"`
	Duplicates int `json:"duplicates"`
	Dropped    int `json:"dropped"`
	Skipped    int `json:"skipped"`
	Unknown    int `json:"unknown"`
}

// Reconciler compares peer checksum vectors with the local registry.
type Reconciler struct {
	dir      Directory
	registry Registry
	queue    *RepairQueue
	observer Observer
	logger   *slog.Logger
}

// NewReconciler creates a reconciler. observer may be nil.
func NewReconciler(dir Directory, registry Registry, queue *RepairQueue, observer Observer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		dir:      dir,
		registry: registry,
		queue:    queue,
		observer: observer,
		logger:   logger,
	}
}

// Queue returns the repair queue.
func (r *Reconciler) Queue() *RepairQueue {
	return r.queue
}

// Authorize resolves source to the address of the member that sent a report.
// A bare host is accepted only when it identifies exactly one member.
func (r *Reconciler) Authorize(source string) (string, error) {
	if !r.dir.HasMember(source) {
		r.logger.Warn("checksum report from unknown member", "source", source)
		return "", domain.ErrUnknownMember.WithDetails(source)
	}

	var matched []string
	for _, m := range r.dir.Members() {
		if m.Address == source {
			return m.Address, nil
		}
		if m.Matches(source) {
			matched = append(matched, m.Address)
		}
	}
	if len(matched) != 1 {
		r.logger.Warn("checksum report source is ambiguous", "source", source, "members", matched)
		return "", domain.ErrUnknownMember.WithDetails(fmt.Sprintf("%s matches %d members", source, len(matched)))
	}
	return matched[0], nil
}

// Report processes a checksum vector pushed by source.
//
// A source outside the cluster is rejected before any entry is read. Repair
// tasks carry the member address source resolves to. Entries with an empty name or checksum and services unknown locally are
// skipped. Every mismatch offers one RepairTask; a pending task with the
// same key absorbs the report.
func (r *Reconciler) Report(ctx context.Context, source string, vector domain.ChecksumVector) (*ReconcileResult, error) {
	source, err := r.Authorize(source)
	if err != nil {
		return nil, err
	}

	namespaceID := vector.NamespaceID
	if namespaceID == "" {
		namespaceID = domain.DefaultNamespace
	}

	names := make([]string, 0, len(vector.Entries))
	for name := range vector.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &ReconcileResult{}
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		remote := vector.Entries[name]
		if name == "" || remote == "" {
			result.Skipped++
			r.logger.Warn("malformed checksum entry skipped",
				"source", source,
				"namespace_id", namespaceID,
				"service", name)
			continue
		}

		local, ok := r.registry.ComputeChecksum(namespaceID, name)
		if !ok {
			result.Unknown++
			continue
		}
		result.Compared++
		if local == remote {
			continue
		}

		result.Mismatched++
		r.logger.Debug("checksum is not consistent",
			"service", name,
			"namespace_id", namespaceID,
			"source", source,
			"remote", remote,
			"local", local)

		enqueued, err := r.queue.Offer(domain.RepairTask{
			NamespaceID:   namespaceID,
			ServiceName:   name,
			SourceAddress: source,
			Checksum:      remote,
		})
		switch {
		case errors.Is(err, domain.ErrRepairQueueFull):
			result.Dropped++
			r.logger.Warn("repair queue full, task dropped",
				"service", name,
				"namespace_id", namespaceID,
				"source", source)
		case err != nil:
			return result, err
		case enqueued:
			result.Enqueued++
		default:
			result.Duplicates++
		}
	}

	if r.observer != nil {
		r.observer.ObserveReconcile(result)
	}
	return result, nil
}

// Checksum returns the recomputed checksum of one local service.
func (r *Reconciler) Checksum(namespaceID, name string) (string, error) {
	if name == "" {
		return "", domain.ErrMissingArgument.WithDetails("serviceName")
	}
	if namespaceID == "" {
		namespaceID = domain.DefaultNamespace
	}
	sum, ok := r.registry.ComputeChecksum(namespaceID, name)
	if !ok {
		return "", domain.ErrServiceNotFound.WithDetails(name)
	}
	return sum, nil
}

// Vector builds the checksum vector of one local namespace.
func Vector(registry Registry, namespaceID string) domain.ChecksumVector {
	services := registry.List(namespaceID)
	v := domain.ChecksumVector{
		NamespaceID: namespaceID,
		Entries:     make(map[string]string, len(services)),
	}
	for _, svc := range services {
		v.Entries[svc.Name] = svc.Checksum()
	}
	return v
}
