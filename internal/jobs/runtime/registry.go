package runtime

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Handler is one periodic sweep.
type Handler interface {
	Name() string
	Interval() time.Duration
	Run(rc *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler Name() is empty")
	}
	if h.Interval() <= 0 {
		return fmt.Errorf("handler %s has no interval", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for job=%s", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// List returns handlers sorted by name.
func (r *Registry) List() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
