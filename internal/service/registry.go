package service

import (
	"fmt"

	"github.com/linearkv/linearkv/internal/kv"
)

// waiterKey identifies one logical client request across retries.
type waiterKey struct {
	clientID string
	seq      int64
}

// registry tracks in-flight requests awaiting commit notification. It is not
// self-locking: every method must be called with the service mutex held, so
// that "mutate state machine + record session + deliver" stays one atomic
// unit with respect to new registrations.
type registry struct {
	waiters map[waiterKey]chan kv.Result
}

func newRegistry() *registry {
	return &registry{waiters: make(map[waiterKey]chan kv.Result)}
}

// register inserts a fresh completion channel for key. The channel is
// buffered so that delivery never blocks the apply loop, even if the waiter
// has already given up. A collision means the caller reused a sequence
// number while a request for it is still in flight, which breaks the
// at-most-one-live-waiter invariant; that is a bug, not a recoverable
// condition.
func (r *registry) register(key waiterKey) chan kv.Result {
	if _, ok := r.waiters[key]; ok {
		panic(fmt.Sprintf("service: duplicate pending request for client %s seq %d", key.clientID, key.seq))
	}
	ch := make(chan kv.Result, 1)
	r.waiters[key] = ch
	return ch
}

// takeAndClear removes and returns the completion channel for key, if
// present. Removal is atomic with the lookup so a completion fires at most
// once.
func (r *registry) takeAndClear(key waiterKey) (chan kv.Result, bool) {
	ch, ok := r.waiters[key]
	if ok {
		delete(r.waiters, key)
	}
	return ch, ok
}

// removeIf deletes the entry for key only if it still holds ch. A waiter
// that timed out uses this to clean up without clobbering a channel
// re-registered by its own retry.
func (r *registry) removeIf(key waiterKey, ch chan kv.Result) {
	if cur, ok := r.waiters[key]; ok && cur == ch {
		delete(r.waiters, key)
	}
}

func (r *registry) len() int {
	return len(r.waiters)
}
