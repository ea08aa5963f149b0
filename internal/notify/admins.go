package notify

import (
	"sort"
	"sync"
)

// AdminSet holds the administrator ids. It is shared by the dispatcher, the
// flow engine and the router, and swapped live on config reload.
type AdminSet struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewAdminSet(ids []int64) *AdminSet {
	s := &AdminSet{}
	s.Set(ids)
	return s
}

func (s *AdminSet) Set(ids []int64) {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id > 0 {
			m[id] = struct{}{}
		}
	}
	s.mu.Lock()
	s.ids = m
	s.mu.Unlock()
}

func (s *AdminSet) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the admin ids in stable order.
func (s *AdminSet) IDs() []int64 {
	s.mu.RLock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
