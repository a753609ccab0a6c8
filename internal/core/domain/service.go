package domain

import (
	"encoding/hex"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// DefaultNamespace is the namespace used when a request does not name one.
const DefaultNamespace = "public"

// DefaultClusterName is the instance cluster used when none is given.
const DefaultClusterName = "DEFAULT"

// Instance is one registered endpoint of a service.
type Instance struct {
	IP          string            `json:"ip"`
	Port        int               `json:"port"`
	Weight      float64           `json:"weight"`
	Healthy     bool              `json:"healthy"`
	Enabled     bool              `json:"enabled"`
	Ephemeral   bool              `json:"ephemeral"`
	ClusterName string            `json:"clusterName"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Addr returns ip:port.
func (i Instance) Addr() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// Service is the registry view of a service that replicas compare by checksum.
type Service struct {
	NamespaceID string            `json:"namespaceId"`
	Name        string            `json:"name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Instances   []Instance        `json:"instances"`
}

// Clone returns a deep copy of the service.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	c := &Service{
		NamespaceID: s.NamespaceID,
		Name:        s.Name,
		Metadata:    cloneStrings(s.Metadata),
		Instances:   make([]Instance, len(s.Instances)),
	}
	for i, inst := range s.Instances {
		inst.Metadata = cloneStrings(inst.Metadata)
		c.Instances[i] = inst
	}
	return c
}

// Checksum computes a deterministic digest of the service state.
//
// Instances are ordered by cluster, address and then every remaining field,
// metadata by key. Two replicas holding the same logical state produce the
// same checksum regardless of insertion order, even when instances share an
// address.
func (s *Service) Checksum() string {
	var b strings.Builder
	b.WriteString(s.NamespaceID)
	b.WriteByte('|')
	b.WriteString(s.Name)
	b.WriteByte('|')
	writeSorted(&b, s.Metadata)

	lines := make([]string, len(s.Instances))
	for i, inst := range s.Instances {
		var l strings.Builder
		l.WriteString(inst.ClusterName)
		l.WriteByte(',')
		l.WriteString(inst.Addr())
		l.WriteByte(',')
		l.WriteString(strconv.FormatFloat(inst.Weight, 'f', -1, 64))
		l.WriteByte(',')
		l.WriteString(strconv.FormatBool(inst.Healthy))
		l.WriteByte(',')
		l.WriteString(strconv.FormatBool(inst.Enabled))
		l.WriteByte(',')
		l.WriteString(strconv.FormatBool(inst.Ephemeral))
		l.WriteByte(',')
		writeSorted(&l, inst.Metadata)
		lines[i] = l.String()
	}
	sort.Strings(lines)
	for _, line := range lines {
		b.WriteByte('\n')
		b.WriteString(line)
	}

	h1, h2 := murmur3.Sum128([]byte(b.String()))
	var sum [16]byte
	for i := 0; i < 8; i++ {
		sum[i] = byte(h1 >> (56 - 8*i))
		sum[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(sum[:])
}

func writeSorted(b *strings.Builder, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
	}
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
