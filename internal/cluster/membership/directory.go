package membership

import (
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Directory lists the members of the cluster.
type Directory interface {
	// Members returns every member, self included.
	Members() []domain.Member

	// Peers returns every member except self.
	Peers() []domain.Member

	// Self returns the local member.
	Self() domain.Member

	// Find looks up a member by its full address.
	Find(address string) (domain.Member, bool)

	// HasMember reports whether addr is a member address or a member host.
	HasMember(addr string) bool
}

// LongConnectionPeers returns the peers of d that accept long connections.
func LongConnectionPeers(d Directory) []domain.Member {
	peers := d.Peers()
	out := peers[:0:0]
	for _, p := range peers {
		if p.LongConnection {
			out = append(out, p)
		}
	}
	return out
}

// Static is a Directory over a fixed member list.
type Static struct {
	mu      sync.RWMutex
	self    domain.Member
	members []domain.Member
}

// NewStatic creates a static directory. self is added to members if absent.
func NewStatic(self domain.Member, peers []domain.Member) *Static {
	s := &Static{}
	s.Reset(self, peers)
	return s
}

// Reset replaces the member list.
func (s *Static) Reset(self domain.Member, peers []domain.Member) {
	self.Self = true
	members := []domain.Member{self}
	seen := map[string]bool{self.Address: true}
	for _, p := range peers {
		p.Address = strings.TrimSpace(p.Address)
		if p.Address == "" || seen[p.Address] {
			continue
		}
		seen[p.Address] = true
		p.Self = false
		members = append(members, p)
	}
	sort.SliceStable(members[1:], func(i, j int) bool {
		return members[1+i].Address < members[1+j].Address
	})

	s.mu.Lock()
	s.self = self
	s.members = members
	s.mu.Unlock()
}

// Members implements Directory.
func (s *Static) Members() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Member, len(s.members))
	copy(out, s.members)
	return out
}

// Peers implements Directory.
func (s *Static) Peers() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		if !m.Self {
			out = append(out, m)
		}
	}
	return out
}

// Self implements Directory.
func (s *Static) Self() domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// Find implements Directory.
func (s *Static) Find(address string) (domain.Member, bool) {
	return find(s.Members(), address)
}

// HasMember implements Directory.
func (s *Static) HasMember(addr string) bool {
	return hasMember(s.Members(), addr)
}

func find(members []domain.Member, address string) (domain.Member, bool) {
	address = strings.TrimSpace(address)
	for _, m := range members {
		if m.Address == address {
			return m, true
		}
	}
	return domain.Member{}, false
}

func hasMember(members []domain.Member, addr string) bool {
	for _, m := range members {
		if m.Matches(addr) {
			return true
		}
	}
	return false
}
