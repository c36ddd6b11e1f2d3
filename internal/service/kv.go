// Package service contains the replicated KV application service: the
// request handler, the apply listener that consumes the consensus commit
// stream, and the snapshot coordinator.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/linearkv/linearkv/internal/consensus"
	"github.com/linearkv/linearkv/internal/kv"
)

// ErrNotLeader is returned when a request is proposed to a non-leader node.
var ErrNotLeader = errors.New("service: not leader")

// ErrCommitTimeout is returned when a proposed command is not observed as
// committed before the wait deadline. The proposal is not retracted; it may
// still commit, and a retry with the same (client, seq) resolves through the
// session table.
var ErrCommitTimeout = errors.New("service: command not committed before deadline")

// errStaleSnapshot marks an install request older than local progress. It is
// never surfaced; stale installs are skipped.
var errStaleSnapshot = errors.New("service: stale snapshot install")

// DefaultCommitWaitTimeout bounds the commit wait when no timeout is
// configured. It should sit above one leader-election timeout of the engine.
const DefaultCommitWaitTimeout = 2 * time.Second

// Logger is a minimal structured logger interface, compatible with slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics captures service-level metric sinks used by KV.
type Metrics interface {
	IncProposal(nodeID, result string)
	ObserveCommitWait(nodeID string, d time.Duration, ok bool)
	IncDuplicate(nodeID string)
	SetPendingRequests(nodeID string, n int)
	SetLastApplied(nodeID string, index int64)
	ObserveSnapshotDuration(nodeID string, d time.Duration)
	ObserveSnapshotBytes(nodeID string, n int)
	IncSnapshot(nodeID, result string)
	IncInstall(nodeID, result string)
}

type noopMetrics struct{}

func (noopMetrics) IncProposal(string, string)                      {}
func (noopMetrics) ObserveCommitWait(string, time.Duration, bool)   {}
func (noopMetrics) IncDuplicate(string)                             {}
func (noopMetrics) SetPendingRequests(string, int)                  {}
func (noopMetrics) SetLastApplied(string, int64)                    {}
func (noopMetrics) ObserveSnapshotDuration(string, time.Duration)   {}
func (noopMetrics) ObserveSnapshotBytes(string, int)                {}
func (noopMetrics) IncSnapshot(string, string)                      {}
func (noopMetrics) IncInstall(string, string)                       {}

// KV is the application service bridging client requests, the consensus
// engine, and the state machine.
type KV struct {
	engine  consensus.Consensus
	store   *kv.Store
	logger  Logger
	tracer  oteltrace.Tracer
	metrics Metrics
	nodeID  string

	// CommitWaitTimeout bounds how long a request waits for its command to
	// be applied. Zero selects DefaultCommitWaitTimeout.
	CommitWaitTimeout time.Duration

	// SnapshotThresholdBytes triggers log compaction once the engine's state
	// size exceeds it. Zero disables service-triggered compaction.
	SnapshotThresholdBytes int64

	// mu guards reg, lastApplied, the compaction flags, and every state
	// machine mutation. Request handlers hold it only to register and
	// propose, never across the commit wait.
	mu          sync.Mutex
	reg         *registry
	lastApplied int64

	compactInFlight bool
	compactPending  bool
}

// NewKV creates the KV service backed by the provided engine and store.
// A nil tracer disables tracing; nil metrics are replaced with a noop sink.
func NewKV(engine consensus.Consensus, store *kv.Store, logger Logger, tracer oteltrace.Tracer, metrics Metrics, nodeID string) *KV {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &KV{
		engine:  engine,
		store:   store,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
		nodeID:  nodeID,
		reg:     newRegistry(),
	}
}

// Get executes a linearizable read. The read goes through the log like any
// write so it reflects every previously committed operation.
func (s *KV) Get(ctx context.Context, key, clientID string, seq int64) (kv.Result, error) {
	ctx, span := s.startSpan(ctx, "kv.service.Get", attribute.String("kv.key", key))
	defer span.End()

	res, err := s.propose(ctx, kv.Command{Op: kv.OpGet, Key: key, ClientID: clientID, Seq: seq})
	if err != nil {
		spanRecordError(span, err)
	}
	return res, err
}

// Put proposes a replicated write of value under key.
func (s *KV) Put(ctx context.Context, key, value, clientID string, seq int64) error {
	ctx, span := s.startSpan(ctx, "kv.service.Put",
		attribute.String("kv.key", key),
		attribute.Int("kv.value.bytes", len(value)),
	)
	defer span.End()

	_, err := s.propose(ctx, kv.Command{Op: kv.OpPut, Key: key, Value: value, ClientID: clientID, Seq: seq})
	if err != nil {
		spanRecordError(span, err)
	}
	return err
}

// Append proposes a replicated append of value to key's current value.
func (s *KV) Append(ctx context.Context, key, value, clientID string, seq int64) error {
	ctx, span := s.startSpan(ctx, "kv.service.Append",
		attribute.String("kv.key", key),
		attribute.Int("kv.value.bytes", len(value)),
	)
	defer span.End()

	_, err := s.propose(ctx, kv.Command{Op: kv.OpAppend, Key: key, Value: value, ClientID: clientID, Seq: seq})
	if err != nil {
		spanRecordError(span, err)
	}
	return err
}

// IsLeader reports whether the underlying engine currently claims leadership.
func (s *KV) IsLeader() bool {
	_, isLeader := s.engine.GetState()
	return isLeader
}

// propose registers a completion waiter and submits the command, then waits
// off-lock for the apply listener to deliver the result.
func (s *KV) propose(ctx context.Context, cmd kv.Command) (kv.Result, error) {
	if cmd.ClientID == "" || cmd.Seq < 1 {
		return kv.Result{}, fmt.Errorf("service: invalid request identity (client %q, seq %d)", cmd.ClientID, cmd.Seq)
	}

	if _, isLeader := s.engine.GetState(); !isLeader {
		s.metrics.IncProposal(s.nodeID, "not_leader")
		return kv.Result{}, ErrNotLeader
	}

	// A retry of the most recently applied request can be answered from the
	// session table without going back through the log.
	if sess, ok := s.store.Session(cmd.ClientID); ok && sess.Seq == cmd.Seq {
		s.metrics.IncProposal(s.nodeID, "session_cache")
		return sess.Result, nil
	}

	raw, err := kv.EncodeCommand(cmd)
	if err != nil {
		return kv.Result{}, err
	}

	key := waiterKey{clientID: cmd.ClientID, seq: cmd.Seq}

	// Registration must precede the proposal inside the same critical
	// section: a commit notification may otherwise race ahead of it.
	s.mu.Lock()
	ch := s.reg.register(key)
	index, term, isLeader := s.engine.Propose(raw)
	if !isLeader {
		s.reg.removeIf(key, ch)
		s.mu.Unlock()
		s.metrics.IncProposal(s.nodeID, "not_leader")
		return kv.Result{}, ErrNotLeader
	}
	pending := s.reg.len()
	s.mu.Unlock()

	s.metrics.IncProposal(s.nodeID, "accepted")
	s.metrics.SetPendingRequests(s.nodeID, pending)
	s.logger.Debug("command proposed",
		"op", cmd.Op,
		"key", cmd.Key,
		"client_id", cmd.ClientID,
		"seq", cmd.Seq,
		"index", index,
		"term", term,
	)

	timeout := s.CommitWaitTimeout
	if timeout <= 0 {
		timeout = DefaultCommitWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	start := time.Now()

	select {
	case res := <-ch:
		s.metrics.ObserveCommitWait(s.nodeID, time.Since(start), true)
		return res, nil
	case <-ctx.Done():
		s.abandonWait(key, ch)
		s.metrics.ObserveCommitWait(s.nodeID, time.Since(start), false)
		s.metrics.IncProposal(s.nodeID, "canceled")
		return kv.Result{}, fmt.Errorf("%w: %v", ErrCommitTimeout, ctx.Err())
	case <-timer.C:
		s.abandonWait(key, ch)
		s.metrics.ObserveCommitWait(s.nodeID, time.Since(start), false)
		s.metrics.IncProposal(s.nodeID, "commit_timeout")
		return kv.Result{}, ErrCommitTimeout
	}
}

// abandonWait removes the waiter entry if it is still ours. The delivery may
// have won the race; the buffered channel absorbs it either way.
func (s *KV) abandonWait(key waiterKey, ch chan kv.Result) {
	s.mu.Lock()
	s.reg.removeIf(key, ch)
	pending := s.reg.len()
	s.mu.Unlock()
	s.metrics.SetPendingRequests(s.nodeID, pending)
}

// RunApplyLoop drains the engine's commit stream until ctx is canceled or a
// malformed entry is encountered. It is the single consumer of the stream
// and therefore the system's linearization point.
func (s *KV) RunApplyLoop(ctx context.Context) error {
	ch := s.engine.ApplyCh()
	if ch == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.handleApply(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (s *KV) handleApply(ctx context.Context, msg consensus.ApplyMsg) error {
	if msg.SnapshotValid {
		return s.installSnapshot(ctx, msg)
	}
	if !msg.CommandValid {
		return nil
	}
	return s.applyCommand(ctx, msg)
}

// applyCommand applies one committed entry: duplicate check, state machine
// mutation, session update, and waiter delivery happen under one lock.
func (s *KV) applyCommand(ctx context.Context, msg consensus.ApplyMsg) error {
	ctx, span := s.startSpan(ctx, "kv.service.applyCommand",
		attribute.Int64("log.index", msg.CommandIndex),
	)
	defer span.End()

	cmd, err := kv.DecodeCommand(msg.Command)
	if err != nil {
		// A committed entry that does not decode is a broken engine
		// contract. Skipping it silently would desynchronize replicas.
		err = fmt.Errorf("service: committed entry at index %d: %w", msg.CommandIndex, err)
		spanRecordError(span, err)
		return err
	}

	s.mu.Lock()
	if msg.CommandIndex <= s.lastApplied {
		// Already covered by a snapshot install; the entry's effect is in
		// the restored state.
		s.mu.Unlock()
		return nil
	}
	s.lastApplied = msg.CommandIndex

	res, duplicate := s.store.Apply(ctx, cmd)

	// Deliver whether or not this was a duplicate: a retry may have
	// re-registered under a new leader and is owed the recorded result.
	delivered := false
	if ch, ok := s.reg.takeAndClear(waiterKey{clientID: cmd.ClientID, seq: cmd.Seq}); ok {
		select {
		case ch <- res:
			delivered = true
		default:
			// Buffered slot already consumed; never stall the apply loop.
		}
	}
	pending := s.reg.len()
	s.mu.Unlock()

	if duplicate {
		s.metrics.IncDuplicate(s.nodeID)
	}
	s.metrics.SetLastApplied(s.nodeID, msg.CommandIndex)
	s.metrics.SetPendingRequests(s.nodeID, pending)
	span.SetAttributes(
		attribute.Bool("kv.duplicate", duplicate),
		attribute.Bool("kv.delivered", delivered),
	)
	s.logger.Debug("command applied",
		"index", msg.CommandIndex,
		"op", cmd.Op,
		"client_id", cmd.ClientID,
		"seq", cmd.Seq,
		"duplicate", duplicate,
		"delivered", delivered,
	)

	s.maybeCompact(ctx)
	return nil
}

// installSnapshot replaces the state machine and session table with an
// externally received snapshot. The whole replacement happens inside one
// critical section; releasing the lock mid-install would let a normal commit
// interleave with a half-installed snapshot.
func (s *KV) installSnapshot(ctx context.Context, msg consensus.ApplyMsg) error {
	ctx, span := s.startSpan(ctx, "kv.service.installSnapshot",
		attribute.Int64("snapshot.index", msg.SnapshotIndex),
		attribute.Int("snapshot.bytes", len(msg.Snapshot)),
	)
	defer span.End()

	s.mu.Lock()
	if msg.SnapshotIndex <= s.lastApplied {
		s.mu.Unlock()
		s.metrics.IncInstall(s.nodeID, "stale")
		s.logger.Debug("ignoring stale snapshot install",
			"snapshot_index", msg.SnapshotIndex,
			"last_applied", s.lastApplied,
		)
		spanRecordError(span, errStaleSnapshot)
		return nil
	}
	if err := s.store.Restore(ctx, msg.Snapshot); err != nil {
		s.mu.Unlock()
		s.metrics.IncInstall(s.nodeID, "decode_error")
		err = fmt.Errorf("service: install snapshot at index %d: %w", msg.SnapshotIndex, err)
		spanRecordError(span, err)
		return err
	}
	s.lastApplied = msg.SnapshotIndex
	s.mu.Unlock()

	s.metrics.IncInstall(s.nodeID, "ok")
	s.metrics.SetLastApplied(s.nodeID, msg.SnapshotIndex)
	s.logger.Info("snapshot installed",
		"snapshot_index", msg.SnapshotIndex,
		"snapshot_term", msg.SnapshotTerm,
	)
	return nil
}

// maybeCompact starts a compaction task when the engine's state has
// outgrown the threshold. Concurrent triggers coalesce into a single
// in-flight task that re-targets the latest applied state, so a burst of
// applies produces one compaction, not a queue of them.
func (s *KV) maybeCompact(ctx context.Context) {
	if s.SnapshotThresholdBytes <= 0 {
		return
	}
	if s.engine.StateSize() < s.SnapshotThresholdBytes {
		return
	}

	s.mu.Lock()
	if s.compactInFlight {
		s.compactPending = true
		s.mu.Unlock()
		return
	}
	s.compactInFlight = true
	s.mu.Unlock()

	go s.compact(context.WithoutCancel(ctx))
}

func (s *KV) compact(ctx context.Context) {
	for {
		ctx, span := s.startSpan(ctx, "kv.service.compact")
		start := time.Now()

		// Index and snapshot are captured under the service mutex so the
		// blob matches the applied index exactly. The handoff to the engine
		// happens off-lock; it may block on engine internals.
		s.mu.Lock()
		index := s.lastApplied
		data, err := s.store.Snapshot(ctx)
		s.mu.Unlock()

		switch {
		case err != nil:
			s.metrics.IncSnapshot(s.nodeID, "store_error")
			s.logger.Error("snapshot serialization failed", "error", err)
			spanRecordError(span, err)
		case index == 0:
			// Nothing applied yet; nothing to compact.
			s.metrics.IncSnapshot(s.nodeID, "empty")
		default:
			if err := s.engine.RequestCompaction(index, data); err != nil {
				s.metrics.IncSnapshot(s.nodeID, "engine_error")
				s.logger.Warn("compaction request rejected",
					"index", index,
					"error", err,
				)
				spanRecordError(span, err)
			} else {
				s.metrics.IncSnapshot(s.nodeID, "ok")
				s.metrics.ObserveSnapshotBytes(s.nodeID, len(data))
				s.logger.Info("log compacted",
					"index", index,
					"snapshot_bytes", len(data),
				)
			}
		}
		s.metrics.ObserveSnapshotDuration(s.nodeID, time.Since(start))
		span.End()

		s.mu.Lock()
		if !s.compactPending {
			s.compactInFlight = false
			s.mu.Unlock()
			return
		}
		// A newer eligible state arrived while we worked; run once more
		// against it instead of queuing per-trigger tasks.
		s.compactPending = false
		s.mu.Unlock()
	}
}

// Status is a point-in-time view of the node for admin surfaces.
type Status struct {
	NodeID          string `json:"node_id"`
	Term            int64  `json:"term"`
	IsLeader        bool   `json:"is_leader"`
	LastApplied     int64  `json:"last_applied"`
	PendingRequests int    `json:"pending_requests"`
	Keys            int    `json:"keys"`
	StateBytes      int64  `json:"state_bytes"`
}

// Status reports the node's current role and progress.
func (s *KV) Status() Status {
	term, isLeader := s.engine.GetState()

	s.mu.Lock()
	lastApplied := s.lastApplied
	pending := s.reg.len()
	s.mu.Unlock()

	return Status{
		NodeID:          s.nodeID,
		Term:            term,
		IsLeader:        isLeader,
		LastApplied:     lastApplied,
		PendingRequests: pending,
		Keys:            s.store.Len(),
		StateBytes:      s.engine.StateSize(),
	}
}

func (s *KV) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func spanRecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
