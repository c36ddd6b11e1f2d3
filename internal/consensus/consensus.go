// Package consensus defines the minimal interface between the replicated
// key-value service and a consensus implementation.
package consensus

import "context"

//go:generate mockgen -source=consensus.go -destination=mocks/consensus_mock.go -package=mocks

// Consensus is the interface implemented by the active consensus engine.
// The service layer depends only on these operations; leader election and
// log replication live behind them.
type Consensus interface {
	// Run starts the engine's background work until ctx is canceled.
	Run(ctx context.Context)

	// Propose submits a command for replication. The returned index is the
	// log position the engine expects to assign; it is advisory only.
	// isLeader reports whether the proposal was accepted.
	Propose(cmd []byte) (index int64, term int64, isLeader bool)

	// GetState returns the engine's current term and whether this node
	// believes it is the leader. It must be cheap.
	GetState() (term int64, isLeader bool)

	// ApplyCh delivers committed commands in strict index order, plus
	// snapshot-install notifications for externally received snapshots.
	ApplyCh() <-chan ApplyMsg

	// RequestCompaction asks the engine to discard log entries up to and
	// including index, which the provided snapshot covers.
	RequestCompaction(index int64, snapshot []byte) error

	// StateSize reports the approximate size in bytes of the engine's
	// replicated state (log + metadata). Used to decide when to compact.
	StateSize() int64

	// Stop shuts the engine down.
	Stop()
}

// ApplyMsg is delivered by the consensus layer to the state machine. Exactly
// one of CommandValid and SnapshotValid is set.
type ApplyMsg struct {
	CommandValid bool
	Command      []byte
	CommandIndex int64
	CommandTerm  int64

	SnapshotValid bool
	Snapshot      []byte
	SnapshotIndex int64
	SnapshotTerm  int64
}
