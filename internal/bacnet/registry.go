package bacnet

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// registry correlates in-flight requests with their responses. Each key
// (a destination address) holds at most one single-assignment result
// slot; the slot is removed when it is resolved, times out, or is
// cancelled, whichever comes first.
type registry[T any] struct {
	mu      sync.Mutex
	pending map[string]chan T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{pending: make(map[string]chan T)}
}

// register claims the slot for key. It fails if a request to the same
// key is already outstanding.
func (r *registry[T]) register(key string) (<-chan T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[key]; ok {
		return nil, fmt.Errorf("request to %s already outstanding", key)
	}
	ch := make(chan T, 1)
	r.pending[key] = ch
	return ch, nil
}

// resolve delivers a result to the slot for key and removes it. Results
// for keys with no outstanding request are dropped.
func (r *registry[T]) resolve(key string, v T) bool {
	r.mu.Lock()
	ch, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- v
	return true
}

// remove clears the slot for key without delivering a result.
func (r *registry[T]) remove(key string) {
	r.mu.Lock()
	delete(r.pending, key)
	r.mu.Unlock()
}

// outstanding returns the number of pending slots.
func (r *registry[T]) outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// await blocks on a registered slot until a result arrives, the timeout
// elapses, or ctx is cancelled. The slot is gone on every return path.
func (r *registry[T]) await(ctx context.Context, key string, ch <-chan T, timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-timer.C:
		r.remove(key)
		return zero, fmt.Errorf("timeout waiting for response from %s", key)
	case <-ctx.Done():
		r.remove(key)
		return zero, ctx.Err()
	}
}
