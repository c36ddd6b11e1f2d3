package kv

import (
	"context"
	"testing"
)

func TestApply_PutGetAppend(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	res, dup := s.Apply(ctx, Command{Op: OpPut, Key: "k", Value: "a", ClientID: "c1", Seq: 1})
	if dup {
		t.Fatal("first put reported as duplicate")
	}
	if !res.Found {
		t.Errorf("put result: want Found=true, got %+v", res)
	}

	res, dup = s.Apply(ctx, Command{Op: OpGet, Key: "k", ClientID: "c1", Seq: 2})
	if dup {
		t.Fatal("first get reported as duplicate")
	}
	if res.Value != "a" || !res.Found {
		t.Errorf("get result: want (a, true), got (%q, %v)", res.Value, res.Found)
	}

	if _, dup = s.Apply(ctx, Command{Op: OpAppend, Key: "k", Value: "b", ClientID: "c1", Seq: 3}); dup {
		t.Fatal("first append reported as duplicate")
	}
	if val, _ := s.Get("k"); val != "ab" {
		t.Errorf("after append: want ab, got %q", val)
	}
}

func TestApply_GetMissingKey(t *testing.T) {
	s := NewStore(nil)

	res, _ := s.Apply(context.Background(), Command{Op: OpGet, Key: "nope", ClientID: "c1", Seq: 1})
	if res.Found {
		t.Errorf("missing key: want Found=false, got %+v", res)
	}
}

func TestApply_DuplicateDoesNotMutate(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	first, _ := s.Apply(ctx, Command{Op: OpAppend, Key: "k", Value: "x", ClientID: "c1", Seq: 1})

	// Re-delivery of the same (client, seq) must not append again and must
	// return the originally recorded result.
	again, dup := s.Apply(ctx, Command{Op: OpAppend, Key: "k", Value: "x", ClientID: "c1", Seq: 1})
	if !dup {
		t.Fatal("re-delivered command not detected as duplicate")
	}
	if again != first {
		t.Errorf("duplicate result: want %+v, got %+v", first, again)
	}
	if val, _ := s.Get("k"); val != "x" {
		t.Errorf("state mutated by duplicate: got %q", val)
	}
}

func TestApply_OldSeqReturnsCachedResult(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Apply(ctx, Command{Op: OpPut, Key: "k", Value: "a", ClientID: "c1", Seq: 1})
	s.Apply(ctx, Command{Op: OpGet, Key: "k", ClientID: "c1", Seq: 2})

	// Seq 1 arriving again after seq 2 is still a duplicate.
	_, dup := s.Apply(ctx, Command{Op: OpPut, Key: "k", Value: "a", ClientID: "c1", Seq: 1})
	if !dup {
		t.Fatal("stale seq not detected as duplicate")
	}

	sess, ok := s.Session("c1")
	if !ok || sess.Seq != 2 {
		t.Errorf("session seq regressed: got %+v", sess)
	}
}

func TestApply_SessionsIndependentPerClient(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Apply(ctx, Command{Op: OpPut, Key: "k", Value: "a", ClientID: "c1", Seq: 5})

	// A different client with a lower seq is not a duplicate.
	if _, dup := s.Apply(ctx, Command{Op: OpAppend, Key: "k", Value: "b", ClientID: "c2", Seq: 1}); dup {
		t.Fatal("other client's command treated as duplicate")
	}
	if val, _ := s.Get("k"); val != "ab" {
		t.Errorf("want ab, got %q", val)
	}
}

func TestSnapshot_RoundTripKeepsSessions(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Apply(ctx, Command{Op: OpPut, Key: "k1", Value: "v1", ClientID: "c1", Seq: 1})
	s.Apply(ctx, Command{Op: OpAppend, Key: "k2", Value: "v2", ClientID: "c2", Seq: 3})

	raw, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	restored := NewStore(nil)
	if err := restored.Restore(ctx, raw); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if val, _ := restored.Get("k1"); val != "v1" {
		t.Errorf("k1: want v1, got %q", val)
	}
	if val, _ := restored.Get("k2"); val != "v2" {
		t.Errorf("k2: want v2, got %q", val)
	}

	// Dedup state must survive the snapshot: re-delivering c2 seq 3 on the
	// restored store must be suppressed.
	if _, dup := restored.Apply(ctx, Command{Op: OpAppend, Key: "k2", Value: "v2", ClientID: "c2", Seq: 3}); !dup {
		t.Error("session table lost across snapshot round trip")
	}
}

func TestSnapshot_Equivalence(t *testing.T) {
	ctx := context.Background()
	cmds := []Command{
		{Op: OpPut, Key: "a", Value: "1", ClientID: "c1", Seq: 1},
		{Op: OpAppend, Key: "a", Value: "2", ClientID: "c1", Seq: 2},
		{Op: OpPut, Key: "b", Value: "x", ClientID: "c2", Seq: 1},
		{Op: OpAppend, Key: "b", Value: "y", ClientID: "c2", Seq: 2},
		{Op: OpAppend, Key: "a", Value: "3", ClientID: "c1", Seq: 3},
	}

	// Direct: apply everything.
	direct := NewStore(nil)
	for _, c := range cmds {
		direct.Apply(ctx, c)
	}

	// Via snapshot: apply [0..k), snapshot, restore, apply [k..n).
	k := 3
	first := NewStore(nil)
	for _, c := range cmds[:k] {
		first.Apply(ctx, c)
	}
	raw, err := first.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	second := NewStore(nil)
	if err := second.Restore(ctx, raw); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	for _, c := range cmds[k:] {
		second.Apply(ctx, c)
	}

	for _, key := range []string{"a", "b"} {
		want, _ := direct.Get(key)
		got, _ := second.Get(key)
		if got != want {
			t.Errorf("key %s: want %q, got %q", key, want, got)
		}
	}
}

func TestRestore_EmptyResetsStore(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	s.Apply(ctx, Command{Op: OpPut, Key: "k", Value: "v", ClientID: "c1", Seq: 1})

	if err := s.Restore(ctx, nil); err != nil {
		t.Fatalf("Restore(nil) error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store not reset: %d keys remain", s.Len())
	}
	if _, ok := s.Session("c1"); ok {
		t.Error("session table not reset")
	}
}

func TestDecodeCommand_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"garbage", []byte("not json")},
		{"unknown op", []byte(`{"op":"delete","key":"k","client_id":"c","seq":1}`)},
		{"no client", []byte(`{"op":"put","key":"k","seq":1}`)},
		{"zero seq", []byte(`{"op":"put","key":"k","client_id":"c","seq":0}`)},
	}
	for _, tc := range cases {
		if _, err := DecodeCommand(tc.raw); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}

func TestEncodeDecodeCommand(t *testing.T) {
	cmd := Command{Op: OpAppend, Key: "k", Value: "v", ClientID: "client-7", Seq: 42}
	raw, err := EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	got, err := DecodeCommand(raw)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if got != cmd {
		t.Errorf("round trip: want %+v, got %+v", cmd, got)
	}
}
