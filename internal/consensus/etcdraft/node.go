// Package etcdraft adapts the etcd raft library to the consensus interface
// consumed by the KV service. It owns the tick/ready loop, durable log
// storage, and the HTTP transport between peers.
package etcdraft

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/etcd/raft/v3"
	"go.etcd.io/etcd/raft/v3/raftpb"

	"github.com/linearkv/linearkv/internal/consensus"
)

// Logger is the minimal logging interface used by the engine.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	defaultTickInterval  = 100 * time.Millisecond
	defaultElectionTick  = 10
	defaultHeartbeatTick = 1
	defaultProposeWait   = time.Second

	applyChCapacity = 256
)

// Config describes one raft node.
type Config struct {
	// ID is this node's raft id. Must appear in Peers.
	ID uint64

	// Peers maps raft ids to peer transport base URLs, including this node.
	Peers map[uint64]string

	// ListenAddr is the address the peer transport listens on.
	ListenAddr string

	// DataPath is the bbolt file holding the durable raft state.
	DataPath string

	// TickInterval is the raft logical clock period.
	TickInterval time.Duration

	ElectionTick  int
	HeartbeatTick int
}

// Validate checks the config and fills in defaults.
func (c *Config) Validate() error {
	if c.ID == 0 {
		return fmt.Errorf("raft config: id must be non-zero")
	}
	if _, ok := c.Peers[c.ID]; !ok {
		return fmt.Errorf("raft config: own id %d missing from peers", c.ID)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("raft config: listen address is required")
	}
	if c.DataPath == "" {
		return fmt.Errorf("raft config: data path is required")
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.ElectionTick <= 0 {
		c.ElectionTick = defaultElectionTick
	}
	if c.HeartbeatTick <= 0 {
		c.HeartbeatTick = defaultHeartbeatTick
	}
	return nil
}

// Node drives a single raft replica and implements consensus.Consensus.
//
// Committed entries flow through an unbounded internal queue before the
// applyCh so the ready loop never blocks on a slow consumer; this keeps the
// engine live while the service layer holds its own lock.
type Node struct {
	id           uint64
	listenAddr   string
	tickInterval time.Duration

	underlying raft.Node
	storage    *Storage
	transport  *Transport
	logger     Logger

	applyCh chan consensus.ApplyMsg

	mu        sync.Mutex
	queue     []consensus.ApplyMsg
	confState raftpb.ConfState

	queueCh chan struct{}

	term atomic.Int64
	lead atomic.Uint64

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewNode opens the durable storage at cfg.DataPath and starts (or restarts)
// the raft state machine. Call Run to begin processing.
func NewNode(cfg Config, logger Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storage, err := OpenStorage(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	n := &Node{
		id:           cfg.ID,
		listenAddr:   cfg.ListenAddr,
		tickInterval: cfg.TickInterval,
		storage:      storage,
		logger:       logger,
		applyCh:      make(chan consensus.ApplyMsg, applyChCapacity),
		queueCh:      make(chan struct{}, 1),
	}
	n.transport = NewTransport(cfg.ID, cfg.Peers, n.step, logger)

	raftCfg := &raft.Config{
		ID:              cfg.ID,
		ElectionTick:    cfg.ElectionTick,
		HeartbeatTick:   cfg.HeartbeatTick,
		Storage:         storage.Memory(),
		MaxSizePerMsg:   1 << 20,
		MaxInflightMsgs: 256,
	}

	empty, err := storage.IsEmpty()
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	if empty {
		peers := make([]raft.Peer, 0, len(cfg.Peers))
		for id, addr := range cfg.Peers {
			peers = append(peers, raft.Peer{ID: id, Context: []byte(addr)})
			n.confState.Voters = append(n.confState.Voters, id)
		}
		n.underlying = raft.StartNode(raftCfg, peers)
	} else {
		if snap, err := storage.Snapshot(); err == nil && !raft.IsEmptySnap(snap) {
			raftCfg.Applied = snap.Metadata.Index
			n.confState = snap.Metadata.ConfState
		}
		n.underlying = raft.RestartNode(raftCfg)
	}

	return n, nil
}

// Run processes ticks, ready batches, and the apply queue until ctx is
// canceled.
func (n *Node) Run(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)

	n.transport.Start(n.listenAddr)
	go n.publish(ctx)

	// Hand a restored snapshot to the state machine before any re-delivered
	// log entries.
	if snap, err := n.storage.Snapshot(); err == nil && !raft.IsEmptySnap(snap) {
		n.enqueue(consensus.ApplyMsg{
			SnapshotValid: true,
			Snapshot:      snap.Data,
			SnapshotIndex: int64(snap.Metadata.Index),
			SnapshotTerm:  int64(snap.Metadata.Term),
		})
	}

	ticker := time.NewTicker(n.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.underlying.Tick()
		case rd := <-n.underlying.Ready():
			if err := n.handleReady(rd); err != nil {
				n.logger.Error("raft ready handling failed, stopping engine", "error", err)
				return
			}
		}
	}
}

func (n *Node) handleReady(rd raft.Ready) error {
	if rd.SoftState != nil {
		n.lead.Store(rd.SoftState.Lead)
	}
	if !raft.IsEmptyHardState(rd.HardState) {
		n.term.Store(int64(rd.HardState.Term))
	}

	// Durability before visibility: entries and hard state hit disk before
	// any message or committed entry leaves this node.
	if err := n.storage.Save(rd.HardState, rd.Entries); err != nil {
		return err
	}

	if !raft.IsEmptySnap(rd.Snapshot) {
		if err := n.storage.SaveSnapshot(rd.Snapshot); err != nil {
			return err
		}
		n.mu.Lock()
		n.confState = rd.Snapshot.Metadata.ConfState
		n.mu.Unlock()
		n.enqueue(consensus.ApplyMsg{
			SnapshotValid: true,
			Snapshot:      rd.Snapshot.Data,
			SnapshotIndex: int64(rd.Snapshot.Metadata.Index),
			SnapshotTerm:  int64(rd.Snapshot.Metadata.Term),
		})
	}

	n.sendMessages(rd.Messages)

	for _, entry := range rd.CommittedEntries {
		switch entry.Type {
		case raftpb.EntryNormal:
			if len(entry.Data) == 0 {
				continue
			}
			n.enqueue(consensus.ApplyMsg{
				CommandValid: true,
				Command:      entry.Data,
				CommandIndex: int64(entry.Index),
				CommandTerm:  int64(entry.Term),
			})
		case raftpb.EntryConfChange:
			var cc raftpb.ConfChange
			if err := cc.Unmarshal(entry.Data); err != nil {
				return fmt.Errorf("unmarshal conf change: %w", err)
			}
			state := n.underlying.ApplyConfChange(cc)
			n.mu.Lock()
			n.confState = *state
			n.mu.Unlock()
			n.applyConfChangeToTransport(cc)
			if err := n.storage.SaveConfState(*state); err != nil {
				return err
			}
		}
	}

	n.underlying.Advance()
	return nil
}

func (n *Node) applyConfChangeToTransport(cc raftpb.ConfChange) {
	switch cc.Type {
	case raftpb.ConfChangeAddNode:
		addr := string(cc.Context)
		if addr != "" {
			n.transport.AddPeer(cc.NodeID, addr)
			n.logger.Info("peer added", "peer_id", cc.NodeID, "addr", addr)
		}
	case raftpb.ConfChangeRemoveNode:
		n.transport.RemovePeer(cc.NodeID)
		n.logger.Info("peer removed", "peer_id", cc.NodeID)
	}
}

func (n *Node) sendMessages(msgs []raftpb.Message) {
	for _, msg := range msgs {
		if msg.To == n.id {
			continue
		}
		go func(m raftpb.Message) {
			if err := n.transport.Send(m); err != nil {
				n.logger.Warn("raft message dropped",
					"to", m.To, "type", m.Type.String(), "error", err)
			}
		}(msg)
	}
}

func (n *Node) enqueue(msg consensus.ApplyMsg) {
	n.mu.Lock()
	n.queue = append(n.queue, msg)
	n.mu.Unlock()

	select {
	case n.queueCh <- struct{}{}:
	default:
	}
}

// publish drains the internal queue into the applyCh in order.
func (n *Node) publish(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.queueCh:
		}

		for {
			n.mu.Lock()
			if len(n.queue) == 0 {
				n.mu.Unlock()
				break
			}
			msg := n.queue[0]
			n.queue = n.queue[1:]
			n.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case n.applyCh <- msg:
			}
		}
	}
}

func (n *Node) step(ctx context.Context, msg raftpb.Message) error {
	return n.underlying.Step(ctx, msg)
}

// Propose submits a command for replication. The returned index is the next
// log position at the time of the call; concurrent proposals may shift the
// actual position.
func (n *Node) Propose(cmd []byte) (int64, int64, bool) {
	term := n.term.Load()
	if n.lead.Load() != n.id {
		return 0, term, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProposeWait)
	defer cancel()
	if err := n.underlying.Propose(ctx, cmd); err != nil {
		n.logger.Warn("proposal rejected", "error", err)
		return 0, term, false
	}

	index := int64(1)
	if last, err := n.storage.Memory().LastIndex(); err == nil {
		index = int64(last) + 1
	}
	return index, term, true
}

// GetState reports the cached term and leadership, updated from every ready
// batch.
func (n *Node) GetState() (int64, bool) {
	return n.term.Load(), n.lead.Load() == n.id
}

// ApplyCh delivers committed commands and snapshot installs in log order.
func (n *Node) ApplyCh() <-chan consensus.ApplyMsg {
	return n.applyCh
}

// RequestCompaction snapshots the log at index with the provided state
// machine bytes and discards the covered prefix.
func (n *Node) RequestCompaction(index int64, snapshot []byte) error {
	n.mu.Lock()
	confState := n.confState
	n.mu.Unlock()

	if _, err := n.storage.Compact(uint64(index), &confState, snapshot); err != nil {
		return err
	}
	n.logger.Info("log compacted", "through_index", index, "snapshot_bytes", len(snapshot))
	return nil
}

// StateSize reports the approximate retained log size in bytes.
func (n *Node) StateSize() int64 {
	return n.storage.LogBytes()
}

// Stop shuts the engine down and closes its storage.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
		}
		n.underlying.Stop()
		if err := n.transport.Stop(); err != nil {
			n.logger.Warn("raft transport stop", "error", err)
		}
		if err := n.storage.Close(); err != nil {
			n.logger.Warn("raft storage close", "error", err)
		}
	})
}
