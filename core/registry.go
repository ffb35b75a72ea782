package core

import "sync"

// Registry hands out the fixed set of peripheral instances a board provides.
// Instances are numbered from 1; number 0 asks for the next one that has not
// been handed out yet.
type Registry[T any] struct {
	mu      sync.Mutex
	items   []T
	claimed []bool
}

// NewRegistry creates a registry over the given instances, in board order.
func NewRegistry[T any](items ...T) *Registry[T] {
	return &Registry[T]{
		items:   items,
		claimed: make([]bool, len(items)),
	}
}

// Len returns the number of instances.
func (r *Registry[T]) Len() int {
	return len(r.items)
}

// Open returns instance num (1-origin), or the next unclaimed instance when
// num is 0. Opening the same numbered instance twice returns the same handle.
func (r *Registry[T]) Open(num int) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if num < 0 || num > len(r.items) {
		return zero, ErrNoInstance
	}
	if num == 0 {
		for i, c := range r.claimed {
			if !c {
				r.claimed[i] = true
				return r.items[i], nil
			}
		}
		return zero, ErrNoInstance
	}
	r.claimed[num-1] = true
	return r.items[num-1], nil
}

// Release makes instance num available to automatic assignment again.
func (r *Registry[T]) Release(num int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if num >= 1 && num <= len(r.items) {
		r.claimed[num-1] = false
	}
}
