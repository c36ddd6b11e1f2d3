package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Store is the replicated state machine: a string map plus the per-client
// session table. Mutation happens only through Apply and Restore, which the
// service layer serializes; the internal lock additionally allows concurrent
// local reads.
type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	sessions map[string]Session
	tracer   oteltrace.Tracer
}

// NewStore creates an empty store. A nil tracer disables tracing.
func NewStore(tracer oteltrace.Tracer) *Store {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Store{
		data:     make(map[string]string),
		sessions: make(map[string]Session),
		tracer:   tracer,
	}
}

// Get returns the current value for key, if present. This is a local read
// against possibly stale state; linearizable reads go through Apply.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// Session returns the recorded session for clientID, if any.
func (s *Store) Session(clientID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[clientID]
	return sess, ok
}

// Len returns the number of keys currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Apply executes a committed command. If the command's sequence number does
// not exceed the client's recorded session, the state machine is left
// untouched and the previously recorded result is returned with
// duplicate=true. Otherwise the command is applied and the session advanced
// in the same critical section.
func (s *Store) Apply(ctx context.Context, cmd Command) (res Result, duplicate bool) {
	_, span := s.tracer.Start(ctx, "kv.store.Apply", oteltrace.WithAttributes(
		attribute.String("kv.command.op", string(cmd.Op)),
		attribute.String("kv.key", cmd.Key),
		attribute.Int64("kv.command.seq", cmd.Seq),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[cmd.ClientID]; ok && cmd.Seq <= sess.Seq {
		span.SetAttributes(attribute.Bool("kv.duplicate", true))
		return sess.Result, true
	}

	switch cmd.Op {
	case OpGet:
		val, ok := s.data[cmd.Key]
		res = Result{Value: val, Found: ok}
	case OpPut:
		s.data[cmd.Key] = cmd.Value
		res = Result{Found: true}
	case OpAppend:
		s.data[cmd.Key] += cmd.Value
		res = Result{Found: true}
	}

	s.sessions[cmd.ClientID] = Session{Seq: cmd.Seq, Result: res}
	return res, false
}

// snapshot is the serialized store layout.
type snapshot struct {
	KV       map[string]string  `json:"kv"`
	Sessions map[string]Session `json:"sessions"`
}

// Snapshot returns a serialized copy of the KV map and the session table.
// Sessions must travel with the data: a replica restored without them would
// re-apply requests it has already executed.
func (s *Store) Snapshot(ctx context.Context) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "kv.store.Snapshot")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	span.SetAttributes(attribute.Int("kv.store.items", len(s.data)))

	// Copy to avoid exposing internal maps during marshaling.
	snap := snapshot{
		KV:       make(map[string]string, len(s.data)),
		Sessions: make(map[string]Session, len(s.sessions)),
	}
	for k, v := range s.data {
		snap.KV[k] = v
	}
	for id, sess := range s.sessions {
		snap.Sessions[id] = sess
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("kv: snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int("kv.snapshot.bytes", len(raw)))
	return raw, nil
}

// Restore replaces the KV map and session table with the snapshot contents
// as one atomic step. Empty snapshot bytes reset the store.
func (s *Store) Restore(ctx context.Context, raw []byte) error {
	_, span := s.tracer.Start(ctx, "kv.store.Restore", oteltrace.WithAttributes(
		attribute.Int("kv.snapshot.bytes", len(raw)),
	))
	defer span.End()

	data := make(map[string]string)
	sessions := make(map[string]Session)

	if len(raw) > 0 {
		var snap snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("kv: restore snapshot: %w", err)
		}
		if snap.KV != nil {
			data = snap.KV
		}
		if snap.Sessions != nil {
			sessions = snap.Sessions
		}
	}

	s.mu.Lock()
	s.data = data
	s.sessions = sessions
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("kv.store.items", len(data)))
	return nil
}
