package etcdraft

import (
	"path/filepath"
	"testing"

	"go.etcd.io/etcd/raft/v3/raftpb"
)

func openTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := OpenStorage(path)
	if err != nil {
		t.Fatalf("OpenStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEntries(from, to uint64) []raftpb.Entry {
	entries := make([]raftpb.Entry, 0, to-from+1)
	for i := from; i <= to; i++ {
		entries = append(entries, raftpb.Entry{
			Index: i,
			Term:  1,
			Type:  raftpb.EntryNormal,
			Data:  []byte("payload"),
		})
	}
	return entries
}

func TestSaveAndReloadAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raft.db")

	s, err := OpenStorage(path)
	if err != nil {
		t.Fatalf("OpenStorage() error = %v", err)
	}

	hs := raftpb.HardState{Term: 3, Vote: 2, Commit: 5}
	if err := s.Save(hs, testEntries(1, 5)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := openTestStorage(t, path)

	empty, err := reopened.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty() error = %v", err)
	}
	if empty {
		t.Fatal("storage reported empty after restart")
	}

	gotHS, _, err := reopened.Memory().InitialState()
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	if gotHS.Term != 3 || gotHS.Vote != 2 || gotHS.Commit != 5 {
		t.Errorf("hard state = %+v, want term=3 vote=2 commit=5", gotHS)
	}

	last, err := reopened.Memory().LastIndex()
	if err != nil {
		t.Fatalf("LastIndex() error = %v", err)
	}
	if last != 5 {
		t.Errorf("last index = %d, want 5", last)
	}
	if reopened.LogBytes() <= 0 {
		t.Error("log bytes not recomputed on reload")
	}
}

func TestConflictingAppendTruncatesPersistedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raft.db")

	s, err := OpenStorage(path)
	if err != nil {
		t.Fatalf("OpenStorage() error = %v", err)
	}

	if err := s.Save(raftpb.HardState{Term: 2, Commit: 4}, testEntries(1, 7)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A new leader overwrites the uncommitted suffix at a higher term.
	conflict := []raftpb.Entry{
		{Index: 5, Term: 3, Type: raftpb.EntryNormal, Data: []byte("new 5")},
		{Index: 6, Term: 3, Type: raftpb.EntryNormal, Data: []byte("new 6")},
	}
	if err := s.Save(raftpb.HardState{Term: 3, Commit: 4}, conflict); err != nil {
		t.Fatalf("Save() conflict error = %v", err)
	}

	last, err := s.Memory().LastIndex()
	if err != nil {
		t.Fatalf("LastIndex() error = %v", err)
	}
	if last != 6 {
		t.Fatalf("last index = %d, want 6", last)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The truncated entry 7 must not resurrect on restart.
	reopened := openTestStorage(t, path)
	last, err = reopened.Memory().LastIndex()
	if err != nil {
		t.Fatalf("LastIndex() after restart error = %v", err)
	}
	if last != 6 {
		t.Errorf("last index after restart = %d, want 6", last)
	}
	term, err := reopened.Memory().Term(6)
	if err != nil {
		t.Fatalf("Term(6) error = %v", err)
	}
	if term != 3 {
		t.Errorf("term of reloaded entry 6 = %d, want 3", term)
	}
}

func TestFreshStorageIsEmpty(t *testing.T) {
	s := openTestStorage(t, filepath.Join(t.TempDir(), "raft.db"))

	empty, err := s.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty() error = %v", err)
	}
	if !empty {
		t.Error("fresh storage reported non-empty")
	}
	if s.LogBytes() != 0 {
		t.Errorf("fresh storage log bytes = %d, want 0", s.LogBytes())
	}
}

func TestCompactDropsLogPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raft.db")
	s := openTestStorage(t, path)

	hs := raftpb.HardState{Term: 1, Commit: 10}
	if err := s.Save(hs, testEntries(1, 10)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	before := s.LogBytes()

	confState := raftpb.ConfState{Voters: []uint64{1, 2, 3}}
	snap, err := s.Compact(7, &confState, []byte("state machine bytes"))
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if snap.Metadata.Index != 7 {
		t.Errorf("snapshot index = %d, want 7", snap.Metadata.Index)
	}

	first, err := s.Memory().FirstIndex()
	if err != nil {
		t.Fatalf("FirstIndex() error = %v", err)
	}
	if first != 8 {
		t.Errorf("first index after compaction = %d, want 8", first)
	}
	if s.LogBytes() >= before {
		t.Errorf("log bytes did not shrink: before=%d after=%d", before, s.LogBytes())
	}

	// The snapshot survives a restart.
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened := openTestStorage(t, path)
	got, err := reopened.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got.Metadata.Index != 7 || string(got.Data) != "state machine bytes" {
		t.Errorf("reloaded snapshot = index %d data %q", got.Metadata.Index, got.Data)
	}
}

func TestSaveSnapshotReplacesLog(t *testing.T) {
	s := openTestStorage(t, filepath.Join(t.TempDir(), "raft.db"))

	if err := s.Save(raftpb.HardState{Term: 1, Commit: 4}, testEntries(1, 4)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap := raftpb.Snapshot{
		Data: []byte("installed"),
		Metadata: raftpb.SnapshotMetadata{
			Index:     20,
			Term:      2,
			ConfState: raftpb.ConfState{Voters: []uint64{1, 2, 3}},
		},
	}
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	first, err := s.Memory().FirstIndex()
	if err != nil {
		t.Fatalf("FirstIndex() error = %v", err)
	}
	if first != 21 {
		t.Errorf("first index after install = %d, want 21", first)
	}
	if s.LogBytes() != 0 {
		t.Errorf("log bytes after install = %d, want 0", s.LogBytes())
	}
}
