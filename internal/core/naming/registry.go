package naming

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/storage"
)

// Registry is the local service registry.
type Registry interface {
	// Lookup returns a copy of the service.
	Lookup(namespaceID, name string) (*domain.Service, bool)

	// ComputeChecksum recomputes the checksum from current state.
	ComputeChecksum(namespaceID, name string) (string, bool)

	// Put stores a full copy of the service, replacing any previous state.
	Put(ctx context.Context, svc *domain.Service) error

	// List returns copies of every service of a namespace, sorted by name.
	List(namespaceID string) []*domain.Service

	// Namespaces returns the sorted namespace IDs holding services.
	Namespaces() []string
}

const servicePrefix = "svc/"

func serviceKey(namespaceID, name string) []byte {
	return []byte(servicePrefix + namespaceID + "/" + name)
}

// ServiceRegistry is an in-memory Registry with optional write-through
// persistence to a KV engine.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]map[string]*domain.Service

	kv     storage.KVEngine
	logger *slog.Logger
}

// NewServiceRegistry creates a registry. kv may be nil.
func NewServiceRegistry(kv storage.KVEngine, logger *slog.Logger) *ServiceRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceRegistry{
		services: make(map[string]map[string]*domain.Service),
		kv:       kv,
		logger:   logger,
	}
}

// Load reads every persisted service into memory.
func (r *ServiceRegistry) Load(ctx context.Context) (int, error) {
	if r.kv == nil {
		return 0, nil
	}
	loaded := 0
	var decodeErr error
	err := r.kv.Scan(ctx, []byte(servicePrefix), func(key, value []byte) bool {
		var svc domain.Service
		if err := json.Unmarshal(value, &svc); err != nil {
			decodeErr = fmt.Errorf("decode %s: %w", key, err)
			return false
		}
		r.store(&svc)
		loaded++
		return true
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return loaded, domain.ErrStorageError.WithCause(err)
	}
	r.logger.Info("service registry loaded", "services", loaded)
	return loaded, nil
}

// Lookup implements Registry.
func (r *ServiceRegistry) Lookup(namespaceID, name string) (*domain.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[namespaceID][name]
	if !ok {
		return nil, false
	}
	return svc.Clone(), true
}

// ComputeChecksum implements Registry.
func (r *ServiceRegistry) ComputeChecksum(namespaceID, name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[namespaceID][name]
	if !ok {
		return "", false
	}
	return svc.Checksum(), true
}

// Put implements Registry.
func (r *ServiceRegistry) Put(ctx context.Context, svc *domain.Service) error {
	if svc == nil || strings.TrimSpace(svc.Name) == "" {
		return domain.ErrMissingArgument.WithDetails("serviceName")
	}
	c := svc.Clone()
	if c.NamespaceID == "" {
		c.NamespaceID = domain.DefaultNamespace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.persist(ctx, c); err != nil {
		return err
	}
	r.storeLocked(c)
	return nil
}

// Delete removes a service.
func (r *ServiceRegistry) Delete(ctx context.Context, namespaceID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[namespaceID][name]; !ok {
		return false, nil
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, serviceKey(namespaceID, name)); err != nil {
			return false, domain.ErrStorageError.WithCause(err)
		}
	}
	delete(r.services[namespaceID], name)
	if len(r.services[namespaceID]) == 0 {
		delete(r.services, namespaceID)
	}
	return true, nil
}

// RegisterInstance adds or replaces an instance, creating the service if
// needed.
func (r *ServiceRegistry) RegisterInstance(ctx context.Context, namespaceID, name string, inst domain.Instance) error {
	return r.mutate(ctx, namespaceID, name, true, func(svc *domain.Service) bool {
		for i, cur := range svc.Instances {
			if cur.Addr() == inst.Addr() && cur.ClusterName == inst.ClusterName {
				svc.Instances[i] = inst
				return true
			}
		}
		svc.Instances = append(svc.Instances, inst)
		return true
	})
}

// DeregisterInstance removes an instance. The service is kept.
func (r *ServiceRegistry) DeregisterInstance(ctx context.Context, namespaceID, name string, inst domain.Instance) error {
	return r.mutate(ctx, namespaceID, name, false, func(svc *domain.Service) bool {
		for i, cur := range svc.Instances {
			if cur.Addr() == inst.Addr() && cur.ClusterName == inst.ClusterName {
				svc.Instances = append(svc.Instances[:i], svc.Instances[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (r *ServiceRegistry) mutate(ctx context.Context, namespaceID, name string, create bool, fn func(*domain.Service) bool) error {
	if namespaceID == "" {
		namespaceID = domain.DefaultNamespace
	}
	if strings.TrimSpace(name) == "" {
		return domain.ErrMissingArgument.WithDetails("serviceName")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.services[namespaceID][name]
	if !ok && !create {
		return domain.ErrServiceNotFound.WithDetails(namespaceID + "/" + name)
	}
	next := cur.Clone()
	if next == nil {
		next = &domain.Service{NamespaceID: namespaceID, Name: name}
	}
	if !fn(next) {
		return nil
	}
	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.storeLocked(next)
	return nil
}

// List implements Registry.
func (r *ServiceRegistry) List(namespaceID string) []*domain.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns := r.services[namespaceID]
	out := make([]*domain.Service, 0, len(ns))
	for _, svc := range ns {
		out = append(out, svc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Namespaces implements Registry.
func (r *ServiceRegistry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.services))
	for ns := range r.services {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of services across namespaces.
func (r *ServiceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ns := range r.services {
		n += len(ns)
	}
	return n
}

func (r *ServiceRegistry) persist(ctx context.Context, svc *domain.Service) error {
	if r.kv == nil {
		return nil
	}
	data, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("encode service: %w", err)
	}
	if err := r.kv.Set(ctx, serviceKey(svc.NamespaceID, svc.Name), data); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

func (r *ServiceRegistry) store(svc *domain.Service) {
	r.mu.Lock()
	r.storeLocked(svc)
	r.mu.Unlock()
}

func (r *ServiceRegistry) storeLocked(svc *domain.Service) {
	ns, ok := r.services[svc.NamespaceID]
	if !ok {
		ns = make(map[string]*domain.Service)
		r.services[svc.NamespaceID] = ns
	}
	ns[svc.Name] = svc
}
