package biomarker

import (
	"context"
	"sync"
	"time"
)

// BackspaceKey is the key identifier counted as a correction.
const BackspaceKey = "Backspace"

// KeyEvent is a single keydown notification from an input surface.
type KeyEvent struct {
	Key string    `json:"key"`
	At  time.Time `json:"at"`
}

// Observer receives keydown events.
type Observer func(KeyEvent)

// Surface is a live text-input surface that emits keydown notifications.
type Surface interface {
	// Attach registers obs and returns a func that detaches it.
	Attach(obs Observer) (detach func())
}

// SurfaceResolver maps a stable handle to a live Surface.
type SurfaceResolver interface {
	Resolve(ctx context.Context, handle string) (Surface, error)
}

// Registry is an in-memory SurfaceResolver. Surfaces are registered by
// handle and fed with key events by the transport layer.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[string]*MemorySurface
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{surfaces: make(map[string]*MemorySurface)}
}

// Register returns the surface for handle, creating it on first use.
func (r *Registry) Register(handle string) (*MemorySurface, error) {
	if handle == "" {
		return nil, ErrEmptyHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[handle]
	if !ok {
		s = &MemorySurface{handle: handle, observers: make(map[uint64]Observer)}
		r.surfaces[handle] = s
	}
	return s, nil
}

// Remove drops the surface for handle. Attached observers stop receiving events.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	s, ok := r.surfaces[handle]
	delete(r.surfaces, handle)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

// Lookup returns the registered surface without creating it.
func (r *Registry) Lookup(handle string) (*MemorySurface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surfaces[handle]
	return s, ok
}

// Resolve implements SurfaceResolver.
func (r *Registry) Resolve(_ context.Context, handle string) (Surface, error) {
	s, ok := r.Lookup(handle)
	if !ok {
		return nil, ErrSurfaceNotFound
	}
	return s, nil
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.surfaces)
}

// MemorySurface fans key events out to its observers.
type MemorySurface struct {
	handle string

	mu        sync.Mutex
	nextID    uint64
	observers map[uint64]Observer
}

// Handle returns the surface handle.
func (s *MemorySurface) Handle() string { return s.handle }

// Attach implements Surface.
func (s *MemorySurface) Attach(obs Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = obs
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Emit delivers events in order to every attached observer and reports
// how many observers were attached.
func (s *MemorySurface) Emit(events ...KeyEvent) int {
	s.mu.Lock()
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	// observers may take their own locks, so they run outside s.mu
	for _, ev := range events {
		for _, o := range obs {
			o(ev)
		}
	}
	return len(obs)
}

func (s *MemorySurface) close() {
	s.mu.Lock()
	clear(s.observers)
	s.mu.Unlock()
}
