package service

import (
	"testing"
)

func TestRegistry_RegisterAndTake(t *testing.T) {
	r := newRegistry()
	key := waiterKey{clientID: "c1", seq: 1}

	ch := r.register(key)
	if ch == nil || cap(ch) != 1 {
		t.Fatalf("register: want buffered channel of cap 1, got %v", ch)
	}
	if r.len() != 1 {
		t.Fatalf("len: want 1, got %d", r.len())
	}

	got, ok := r.takeAndClear(key)
	if !ok || got != ch {
		t.Fatal("takeAndClear did not return the registered channel")
	}
	if r.len() != 0 {
		t.Errorf("entry not removed, len = %d", r.len())
	}

	// Second take must miss: completions fire at most once.
	if _, ok := r.takeAndClear(key); ok {
		t.Error("takeAndClear found an already-taken entry")
	}
}

func TestRegistry_CollisionPanics(t *testing.T) {
	r := newRegistry()
	key := waiterKey{clientID: "c1", seq: 7}
	r.register(key)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.register(key)
}

func TestRegistry_RemoveIfChecksIdentity(t *testing.T) {
	r := newRegistry()
	key := waiterKey{clientID: "c1", seq: 1}

	old := r.register(key)
	r.removeIf(key, old)
	if r.len() != 0 {
		t.Fatal("removeIf did not remove own entry")
	}

	// A stale waiter must not clobber a retry's fresh registration.
	fresh := r.register(key)
	r.removeIf(key, old)
	if got, ok := r.takeAndClear(key); !ok || got != fresh {
		t.Error("stale removeIf removed the retry's registration")
	}
}
