package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/linearkv/linearkv/internal/consensus/mocks"
	"github.com/linearkv/linearkv/internal/kv"
)

func TestKV_NotLeaderNeverProposes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockConsensus(ctrl)
	engine.EXPECT().GetState().Return(int64(3), false)
	// No Propose expectation: a non-leader node must reject before proposing.

	svc := NewKV(engine, kv.NewStore(nil), slog.Default(), nil, nil, "n1")
	if err := svc.Put(context.Background(), "k", "v", "c1", 1); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("want ErrNotLeader, got %v", err)
	}
}

func TestKV_LeadershipLostAtProposal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockConsensus(ctrl)
	engine.EXPECT().GetState().Return(int64(3), true)
	engine.EXPECT().Propose(gomock.Any()).Return(int64(0), int64(3), false)

	svc := NewKV(engine, kv.NewStore(nil), slog.Default(), nil, nil, "n1")
	if err := svc.Put(context.Background(), "k", "v", "c1", 1); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("want ErrNotLeader, got %v", err)
	}

	// The waiter registered before the failed proposal must be gone.
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.reg.len() != 0 {
		t.Errorf("registry leaked %d entries after rejected proposal", svc.reg.len())
	}
}

func TestKV_StatusReadsEngineState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockConsensus(ctrl)
	engine.EXPECT().GetState().Return(int64(7), true)
	engine.EXPECT().StateSize().Return(int64(4096))

	svc := NewKV(engine, kv.NewStore(nil), slog.Default(), nil, nil, "node-2")
	got := svc.Status()
	if got.NodeID != "node-2" || got.Term != 7 || !got.IsLeader || got.StateBytes != 4096 {
		t.Errorf("unexpected status: %+v", got)
	}
}
