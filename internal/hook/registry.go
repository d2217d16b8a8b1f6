// Package hook implements the named extension points of the query pipeline.
//
// Every extension point is a stage with a declared kind:
//   - Filter[T]: callbacks receive a value and return its replacement.
//   - Gate[A]: callbacks receive the current decision and may flip it.
//   - Action[A]: callbacks observe a value and return nothing.
//
// Callbacks run in ascending priority; equal priorities keep registration
// order. Registration normally happens at startup, while the pipeline reads
// the registry concurrently on every request.
package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultPriority is used when a callback is added without WithPriority.
const DefaultPriority = 10

// Kind is the declared kind of a stage.
type Kind uint8

const (
	KindFilter Kind = iota + 1
	KindGate
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindGate:
		return "gate"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// ErrKindMismatch is returned when a callback is registered on a stage name
// already used with a different kind or value type.
var ErrKindMismatch = errors.New("hook kind mismatch")

// Option configures a single registration.
type Option func(*entry)

// WithPriority sets the priority of a callback. Lower runs first.
func WithPriority(p int) Option {
	return func(e *entry) {
		e.priority = p
	}
}

type entry struct {
	priority int
	seq      uint64
	fn       any
}

type stage struct {
	kind    Kind
	entries []entry
}

// Registry maps stage names to ordered callbacks. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]*stage
	seq    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]*stage)}
}

// add stores fn under name. sameType reports whether a previously stored
// callback has the same concrete signature as fn.
func (r *Registry) add(name string, kind Kind, fn any, sameType func(any) bool, opts []Option) error {
	e := entry{priority: DefaultPriority, fn: fn}
	for _, opt := range opts {
		opt(&e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stages[name]
	if !ok {
		st = &stage{kind: kind}
		r.stages[name] = st
	}
	if st.kind != kind {
		return fmt.Errorf("%w: %q is a %s, not a %s", ErrKindMismatch, name, st.kind, kind)
	}
	if len(st.entries) > 0 && !sameType(st.entries[0].fn) {
		return fmt.Errorf("%w: %q registered with a different value type", ErrKindMismatch, name)
	}

	r.seq++
	e.seq = r.seq
	st.entries = append(st.entries, e)
	sort.SliceStable(st.entries, func(i, j int) bool {
		if st.entries[i].priority != st.entries[j].priority {
			return st.entries[i].priority < st.entries[j].priority
		}
		return st.entries[i].seq < st.entries[j].seq
	})

	return nil
}

// callbacks returns a snapshot of the callbacks registered under name.
func (r *Registry) callbacks(name string) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.stages[name]
	if !ok || len(st.entries) == 0 {
		return nil
	}

	out := make([]any, len(st.entries))
	for i, e := range st.entries {
		out[i] = e.fn
	}
	return out
}

// Len returns the number of callbacks registered under name.
func (r *Registry) Len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if st, ok := r.stages[name]; ok {
		return len(st.entries)
	}
	return 0
}

// Clear removes every callback registered under name.
func (r *Registry) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stages, name)
}

// Filter is a stage whose callbacks transform a value of type T.
type Filter[T any] struct {
	name string
}

// NewFilter declares a filter stage.
func NewFilter[T any](name string) Filter[T] {
	return Filter[T]{name: name}
}

// Name returns the stage name.
func (f Filter[T]) Name() string { return f.name }

// Add registers a callback.
func (f Filter[T]) Add(r *Registry, fn func(ctx context.Context, v T) T, opts ...Option) error {
	return r.add(f.name, KindFilter, fn, func(prev any) bool {
		_, ok := prev.(func(context.Context, T) T)
		return ok
	}, opts)
}

// Apply runs every callback in order, feeding each the previous result.
func (f Filter[T]) Apply(ctx context.Context, r *Registry, v T) T {
	for _, cb := range r.callbacks(f.name) {
		if fn, ok := cb.(func(context.Context, T) T); ok {
			v = fn(ctx, v)
		}
	}
	return v
}

// Gate is a stage whose callbacks decide a boolean about an argument of type A.
type Gate[A any] struct {
	name string
}

// NewGate declares a gate stage.
func NewGate[A any](name string) Gate[A] {
	return Gate[A]{name: name}
}

// Name returns the stage name.
func (g Gate[A]) Name() string { return g.name }

// Add registers a callback. It receives the decision so far.
func (g Gate[A]) Add(r *Registry, fn func(ctx context.Context, allowed bool, arg A) bool, opts ...Option) error {
	return r.add(g.name, KindGate, fn, func(prev any) bool {
		_, ok := prev.(func(context.Context, bool, A) bool)
		return ok
	}, opts)
}

// Check starts from initial and lets every callback revise the decision.
func (g Gate[A]) Check(ctx context.Context, r *Registry, initial bool, arg A) bool {
	allowed := initial
	for _, cb := range r.callbacks(g.name) {
		if fn, ok := cb.(func(context.Context, bool, A) bool); ok {
			allowed = fn(ctx, allowed, arg)
		}
	}
	return allowed
}

// Action is a stage whose callbacks observe a value of type A.
type Action[A any] struct {
	name string
}

// NewAction declares an action stage.
func NewAction[A any](name string) Action[A] {
	return Action[A]{name: name}
}

// Name returns the stage name.
func (a Action[A]) Name() string { return a.name }

// Add registers a callback.
func (a Action[A]) Add(r *Registry, fn func(ctx context.Context, arg A), opts ...Option) error {
	return r.add(a.name, KindAction, fn, func(prev any) bool {
		_, ok := prev.(func(context.Context, A))
		return ok
	}, opts)
}

// Do runs every callback in order.
func (a Action[A]) Do(ctx context.Context, r *Registry, arg A) {
	for _, cb := range r.callbacks(a.name) {
		if fn, ok := cb.(func(context.Context, A)); ok {
			fn(ctx, arg)
		}
	}
}
