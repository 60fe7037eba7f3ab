package mapview

import (
	"fmt"
	"sync"
)

// Surfaces tracks which mount ids currently host a map. A surface is owned
// by exactly one view until it is released.
type Surfaces struct {
	mu      sync.Mutex
	mounted map[string]struct{}
}

// NewSurfaces creates an empty registry.
func NewSurfaces() *Surfaces {
	return &Surfaces{mounted: make(map[string]struct{})}
}

// DefaultSurfaces is the process-wide registry.
var DefaultSurfaces = NewSurfaces()

// Mount claims id.
func (s *Surfaces) Mount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mounted[id]; ok {
		return fmt.Errorf("%w: %q", ErrSurfaceInUse, id)
	}
	s.mounted[id] = struct{}{}
	return nil
}

// Release frees id. Releasing an unmounted id is a no-op.
func (s *Surfaces) Release(id string) {
	s.mu.Lock()
	delete(s.mounted, id)
	s.mu.Unlock()
}

// Mounted reports whether id is claimed.
func (s *Surfaces) Mounted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mounted[id]
	return ok
}
