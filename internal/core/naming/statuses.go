package naming

import (
	"encoding/json"
	"strings"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Legacy statuses separators: svcA@@sumA@@@svcB@@sumB.
const (
	entrySeparator = "@@@"
	pairSeparator  = "@@"
)

// ParseStatuses decodes a checksum report payload.
//
// raw is either the JSON object {"namespaceId": ..., "serviceName2Checksum":
// {...}} or the legacy "svcA@@sumA@@@svcB@@sumB" form. namespaceID applies
// when the payload does not carry one. Entries with an empty name or
// checksum are dropped and counted in skipped. A payload that cannot be
// read at all returns ErrMalformedStatuses.
func ParseStatuses(namespaceID, raw string) (vector domain.ChecksumVector, skipped int, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return vector, 0, domain.ErrMalformedStatuses.WithDetails("empty statuses")
	}
	if namespaceID == "" {
		namespaceID = domain.DefaultNamespace
	}

	if strings.HasPrefix(raw, "{") {
		var decoded struct {
			NamespaceID string             `json:"namespaceId"`
			Entries     map[string]*string `json:"serviceName2Checksum"`
		}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return vector, 0, domain.ErrMalformedStatuses.WithCause(err)
		}
		if decoded.Entries == nil {
			return vector, 0, domain.ErrMalformedStatuses.WithDetails("missing serviceName2Checksum")
		}
		vector.NamespaceID = decoded.NamespaceID
		if vector.NamespaceID == "" {
			vector.NamespaceID = namespaceID
		}
		vector.Entries = make(map[string]string, len(decoded.Entries))
		for name, sum := range decoded.Entries {
			if strings.TrimSpace(name) == "" || sum == nil || *sum == "" {
				skipped++
				continue
			}
			vector.Entries[name] = *sum
		}
		return vector, skipped, nil
	}

	if !strings.Contains(raw, pairSeparator) {
		return vector, 0, domain.ErrMalformedStatuses.WithDetails("no service@@checksum entry")
	}

	vector.NamespaceID = namespaceID
	vector.Entries = make(map[string]string)
	for _, entry := range strings.Split(raw, entrySeparator) {
		name, sum, ok := strings.Cut(entry, pairSeparator)
		name = strings.TrimSpace(name)
		sum = strings.TrimSpace(sum)
		if !ok || name == "" || sum == "" || strings.Contains(sum, pairSeparator) {
			skipped++
			continue
		}
		vector.Entries[name] = sum
	}
	return vector, skipped, nil
}
