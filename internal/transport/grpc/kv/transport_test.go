package kvgrpc_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/linearkv/linearkv/internal/kv"
	"github.com/linearkv/linearkv/internal/service"
	kvgrpc "github.com/linearkv/linearkv/internal/transport/grpc/kv"
	kvpb "github.com/linearkv/linearkv/pkg/proto/kvv1"
)

const bufSize = 1 << 20 // 1 MB

// stubHandler is a test double for *service.KV.
type stubHandler struct {
	getRes  kv.Result
	err     error
	status  service.Status
	lastKey string
	lastSeq int64
	lastCID string
	calls   int
}

func (s *stubHandler) Get(_ context.Context, key, clientID string, seq int64) (kv.Result, error) {
	s.record(key, clientID, seq)
	return s.getRes, s.err
}

func (s *stubHandler) Put(_ context.Context, key, _, clientID string, seq int64) error {
	s.record(key, clientID, seq)
	return s.err
}

func (s *stubHandler) Append(_ context.Context, key, _, clientID string, seq int64) error {
	s.record(key, clientID, seq)
	return s.err
}

func (s *stubHandler) Status() service.Status { return s.status }

func (s *stubHandler) record(key, clientID string, seq int64) {
	s.calls++
	s.lastKey, s.lastCID, s.lastSeq = key, clientID, seq
}

// startServer spins up an in-process gRPC server backed by handler and
// returns a connected client.
func startServer(t *testing.T, handler kvgrpc.Handler) *kvgrpc.Client {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	kvpb.RegisterKVServiceServer(srv, kvgrpc.NewServer(handler))
	go func() { _ = srv.Serve(lis) }()

	dialOpts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	client, err := kvgrpc.Dial("passthrough:///bufconn", dialOpts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		srv.GracefulStop()
	})
	return client
}

func TestGet_RoundTrip(t *testing.T) {
	handler := &stubHandler{getRes: kv.Result{Value: "v1", Found: true}}
	client := startServer(t, handler)

	value, found, err := client.Get(context.Background(), "k1", "client-a", 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "v1" || !found {
		t.Errorf("want (v1, true), got (%q, %v)", value, found)
	}
	if handler.calls != 1 {
		t.Errorf("handler calls = %d, want 1", handler.calls)
	}
	if handler.lastKey != "k1" || handler.lastCID != "client-a" || handler.lastSeq != 7 {
		t.Errorf("request identity lost in transit: key=%q cid=%q seq=%d",
			handler.lastKey, handler.lastCID, handler.lastSeq)
	}
}

func TestPut_NotLeaderMapsToSentinel(t *testing.T) {
	handler := &stubHandler{err: service.ErrNotLeader}
	client := startServer(t, handler)

	err := client.Put(context.Background(), "k", "v", "client-a", 1)
	if !errors.Is(err, kvgrpc.ErrNotLeader) {
		t.Fatalf("want ErrNotLeader, got %v", err)
	}
}

func TestAppend_TimeoutMapsToUnavailable(t *testing.T) {
	handler := &stubHandler{err: service.ErrCommitTimeout}
	client := startServer(t, handler)

	err := client.Append(context.Background(), "k", "v", "client-a", 1)
	if !errors.Is(err, kvgrpc.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

// slowHandler delays every write and records how many are in flight at once
// plus the order their sequence numbers arrive in.
type slowHandler struct {
	stubHandler

	inflight    atomic.Int32
	maxInflight atomic.Int32

	mu   sync.Mutex
	seqs []int64
}

func (s *slowHandler) Put(_ context.Context, _, _, _ string, seq int64) error {
	cur := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		seen := s.maxInflight.Load()
		if cur <= seen || s.maxInflight.CompareAndSwap(seen, cur) {
			break
		}
	}

	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.seqs = append(s.seqs, seq)
	s.mu.Unlock()
	return nil
}

// Two concurrent Puts from one clerk must not race each other's sequence
// numbers: the server keeps one session per client id, so a later seq landing
// first would swallow the earlier write as a duplicate.
func TestClerk_ConcurrentPutsSerialize(t *testing.T) {
	handler := &slowHandler{}

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	kvpb.RegisterKVServiceServer(srv, kvgrpc.NewServer(handler))
	go func() { _ = srv.Serve(lis) }()

	dialOpts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	clerk, err := kvgrpc.DialClerk([]string{"passthrough:///bufconn"}, dialOpts...)
	if err != nil {
		t.Fatalf("DialClerk: %v", err)
	}
	t.Cleanup(func() {
		_ = clerk.Close()
		srv.GracefulStop()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = clerk.Put(ctx, "k", "v")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Put #%d error = %v", i, err)
		}
	}
	if got := handler.maxInflight.Load(); got != 1 {
		t.Errorf("max in-flight requests = %d, want 1", got)
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.seqs) != 2 || handler.seqs[0] != 1 || handler.seqs[1] != 2 {
		t.Errorf("sequence numbers arrived as %v, want [1 2]", handler.seqs)
	}
}

func TestStatus_RoundTrip(t *testing.T) {
	handler := &stubHandler{status: service.Status{
		NodeID:      "n2",
		Term:        4,
		IsLeader:    true,
		LastApplied: 99,
		Keys:        12,
	}}
	client := startServer(t, handler)

	st, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.NodeId != "n2" || st.Term != 4 || !st.IsLeader || st.LastApplied != 99 || st.Keys != 12 {
		t.Errorf("unexpected status: %+v", st)
	}
}
