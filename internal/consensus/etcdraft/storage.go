package etcdraft

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"go.etcd.io/bbolt"
	"go.etcd.io/etcd/raft/v3"
	"go.etcd.io/etcd/raft/v3/raftpb"
)

var (
	entriesBucket = []byte("entries")
	stateBucket   = []byte("state")

	hardStateKey = []byte("hardstate")
	confStateKey = []byte("confstate")
	snapshotKey  = []byte("snapshot")
)

// Storage persists raft state in bbolt and mirrors it into a
// raft.MemoryStorage for the raft library to read. The in-memory copy is
// rebuilt from disk on open, so a restarted node resumes from its last
// durable hard state and snapshot.
type Storage struct {
	db     *bbolt.DB
	memory *raft.MemoryStorage

	logBytes atomic.Int64
}

// OpenStorage opens (or creates) the bbolt file at path and loads any
// previously persisted state into memory.
func OpenStorage(path string) (*Storage, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("raft storage: open %s: %w", path, err)
	}

	s := &Storage{
		db:     db,
		memory: raft.NewMemoryStorage(),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucket); err != nil {
			return fmt.Errorf("create entries bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(stateBucket); err != nil {
			return fmt.Errorf("create state bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("raft storage: init: %w", err)
	}

	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Memory returns the raft.Storage view consumed by the raft library.
func (s *Storage) Memory() *raft.MemoryStorage {
	return s.memory
}

// IsEmpty reports whether the store holds no hard state, used to decide
// between bootstrapping a fresh node and restarting an existing one.
func (s *Storage) IsEmpty() (bool, error) {
	empty := true
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(stateBucket).Get(hardStateKey) != nil {
			empty = false
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("raft storage: check empty: %w", err)
	}
	return empty, nil
}

// Snapshot returns the latest persisted snapshot, if any.
func (s *Storage) Snapshot() (raftpb.Snapshot, error) {
	return s.memory.Snapshot()
}

// Save persists a hard state and new log entries, then mirrors them into
// memory. Either may be empty.
func (s *Storage) Save(hs raftpb.HardState, entries []raftpb.Entry) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if !raft.IsEmptyHardState(hs) {
			data, err := hs.Marshal()
			if err != nil {
				return fmt.Errorf("marshal hard state: %w", err)
			}
			if err := tx.Bucket(stateBucket).Put(hardStateKey, data); err != nil {
				return err
			}
		}

		bucket := tx.Bucket(entriesBucket)
		for i := range entries {
			data, err := entries[i].Marshal()
			if err != nil {
				return fmt.Errorf("marshal entry %d: %w", entries[i].Index, err)
			}
			if err := bucket.Put(indexKey(entries[i].Index), data); err != nil {
				return err
			}
		}
		// A conflicting append truncates the log tail; drop any previously
		// persisted suffix so it cannot resurrect on restart.
		if len(entries) > 0 {
			if err := deleteEntriesAfter(bucket, entries[len(entries)-1].Index); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("raft storage: save: %w", err)
	}

	if !raft.IsEmptyHardState(hs) {
		if err := s.memory.SetHardState(hs); err != nil {
			return fmt.Errorf("raft storage: set hard state: %w", err)
		}
	}
	if len(entries) > 0 {
		if err := s.memory.Append(entries); err != nil {
			return fmt.Errorf("raft storage: append entries: %w", err)
		}
		for i := range entries {
			s.logBytes.Add(int64(entries[i].Size()))
		}
	}
	return nil
}

// SaveConfState persists the active cluster membership.
func (s *Storage) SaveConfState(cs raftpb.ConfState) error {
	data, err := cs.Marshal()
	if err != nil {
		return fmt.Errorf("raft storage: marshal conf state: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put(confStateKey, data)
	})
	if err != nil {
		return fmt.Errorf("raft storage: save conf state: %w", err)
	}
	return nil
}

// SaveSnapshot persists a snapshot received from a peer and replaces the
// in-memory state with it. Log entries covered by the snapshot are dropped.
func (s *Storage) SaveSnapshot(snap raftpb.Snapshot) error {
	if raft.IsEmptySnap(snap) {
		return nil
	}
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("raft storage: marshal snapshot: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(stateBucket).Put(snapshotKey, data); err != nil {
			return err
		}
		return deleteEntriesThrough(tx.Bucket(entriesBucket), snap.Metadata.Index)
	})
	if err != nil {
		return fmt.Errorf("raft storage: save snapshot: %w", err)
	}

	if err := s.memory.ApplySnapshot(snap); err != nil {
		return fmt.Errorf("raft storage: apply snapshot: %w", err)
	}
	s.recountLogBytes()
	return nil
}

// Compact creates a snapshot at index from the provided state machine bytes
// and discards the log prefix it covers.
func (s *Storage) Compact(index uint64, confState *raftpb.ConfState, stateMachine []byte) (raftpb.Snapshot, error) {
	snap, err := s.memory.CreateSnapshot(index, confState, stateMachine)
	if err != nil {
		return raftpb.Snapshot{}, fmt.Errorf("raft storage: create snapshot at %d: %w", index, err)
	}

	data, err := snap.Marshal()
	if err != nil {
		return raftpb.Snapshot{}, fmt.Errorf("raft storage: marshal snapshot: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(stateBucket).Put(snapshotKey, data); err != nil {
			return err
		}
		return deleteEntriesThrough(tx.Bucket(entriesBucket), index)
	})
	if err != nil {
		return raftpb.Snapshot{}, fmt.Errorf("raft storage: persist compaction: %w", err)
	}

	if err := s.memory.Compact(index); err != nil && err != raft.ErrCompacted {
		return raftpb.Snapshot{}, fmt.Errorf("raft storage: compact to %d: %w", index, err)
	}
	s.recountLogBytes()
	return snap, nil
}

// LogBytes reports the approximate size of the retained log.
func (s *Storage) LogBytes() int64 {
	return s.logBytes.Load()
}

// Close closes the underlying bbolt database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) load() error {
	var (
		snap    raftpb.Snapshot
		hasSnap bool
		hs      raftpb.HardState
		hasHS   bool
		entries []raftpb.Entry
		total   int64
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		state := tx.Bucket(stateBucket)

		if data := state.Get(snapshotKey); data != nil {
			if err := snap.Unmarshal(data); err != nil {
				return fmt.Errorf("unmarshal snapshot: %w", err)
			}
			hasSnap = true
		}
		if data := state.Get(hardStateKey); data != nil {
			if err := hs.Unmarshal(data); err != nil {
				return fmt.Errorf("unmarshal hard state: %w", err)
			}
			hasHS = true
		}

		cursor := tx.Bucket(entriesBucket).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var ent raftpb.Entry
			if err := ent.Unmarshal(v); err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			entries = append(entries, ent)
			total += int64(ent.Size())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("raft storage: load: %w", err)
	}

	if hasSnap {
		if err := s.memory.ApplySnapshot(snap); err != nil {
			return fmt.Errorf("raft storage: restore snapshot: %w", err)
		}
	}
	if hasHS {
		if err := s.memory.SetHardState(hs); err != nil {
			return fmt.Errorf("raft storage: restore hard state: %w", err)
		}
	}
	if len(entries) > 0 {
		if err := s.memory.Append(entries); err != nil {
			return fmt.Errorf("raft storage: restore entries: %w", err)
		}
	}
	s.logBytes.Store(total)
	return nil
}

// recountLogBytes recomputes the retained log size from memory bounds after
// a compaction changed the prefix.
func (s *Storage) recountLogBytes() {
	first, err := s.memory.FirstIndex()
	if err != nil {
		return
	}
	last, err := s.memory.LastIndex()
	if err != nil || last < first {
		s.logBytes.Store(0)
		return
	}
	entries, err := s.memory.Entries(first, last+1, ^uint64(0))
	if err != nil {
		s.logBytes.Store(0)
		return
	}
	var total int64
	for i := range entries {
		total += int64(entries[i].Size())
	}
	s.logBytes.Store(total)
}

// Deleting while a cursor iterates skips keys in bbolt, so both helpers
// collect the doomed keys first and delete afterwards.

func deleteEntriesAfter(bucket *bbolt.Bucket, index uint64) error {
	var doomed [][]byte
	cursor := bucket.Cursor()
	for k, _ := cursor.Seek(indexKey(index + 1)); k != nil; k, _ = cursor.Next() {
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func deleteEntriesThrough(bucket *bbolt.Bucket, index uint64) error {
	var doomed [][]byte
	cursor := bucket.Cursor()
	for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
		if binary.BigEndian.Uint64(k) > index {
			break
		}
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func indexKey(index uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, index)
	return b
}
