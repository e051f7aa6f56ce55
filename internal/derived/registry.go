package derived

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"eligibility-signposting/internal/person"
)

var (
	ErrUnknownDerivedValue = errors.New("unknown derived value")
	ErrInvalidSourceDate   = errors.New("invalid source date")
)

// Context is everything a handler needs to compute one value.
type Context struct {
	Person    person.Person
	Level     string // PERSON, COHORT or TARGET
	Condition string // attribute type for TARGET tokens, e.g. COVID
	Target    string // the derived attribute, e.g. NEXT_DOSE_DUE
	Source    string // the stored attribute it is computed from
	Format    string // strftime-style output format, empty for YYYYMMDD
}

type Handler interface {
	Key() string
	// SourceFor returns the stored attribute target is derived from.
	SourceFor(target string) (string, bool)
	Compute(ctx Context) (string, error)
}

// Registry holds derived value handlers by key. Registration may happen after
// evaluation has started; reads and writes are serialised by a RWMutex.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Default builds a registry seeded with the built-in handlers.
func Default() *Registry {
	return NewRegistry(NewAddDays(DefaultAddDays, map[string]int{"COVID": 91}))
}

// Register adds h, replacing any handler with the same key.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Key()] = h
}

func (r *Registry) Handler(key string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDerivedValue, key)
	}
	return h, nil
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup finds the handler that derives target, checking handlers in key
// order, and returns it with the stored source attribute.
func (r *Registry) Lookup(target string) (Handler, string, bool) {
	for _, k := range r.Keys() {
		h, err := r.Handler(k)
		if err != nil {
			continue
		}
		if src, ok := h.SourceFor(target); ok {
			return h, src, true
		}
	}
	return nil, "", false
}
