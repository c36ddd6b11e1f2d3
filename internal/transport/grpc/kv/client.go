// Package kvgrpc contains the KV gRPC client and server adapters, including
// the Clerk that implements the client-side retry contract.
package kvgrpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	kvpb "github.com/linearkv/linearkv/pkg/proto/kvv1"
)

// ErrNotLeader is returned when the targeted node is not the current leader.
var ErrNotLeader = errors.New("kv: node is not the leader")

// ErrUnavailable is returned when a node accepted the request but could not
// confirm a commit in time. The request may still take effect; retrying with
// the same clerk is safe.
var ErrUnavailable = errors.New("kv: commit not confirmed")

// Client is a thin wrapper around the generated KVServiceClient.
type Client struct {
	conn   *grpc.ClientConn
	client kvpb.KVServiceClient
}

// Dial connects to a KV gRPC server at target.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("kv client: dial %s: %w", target, err)
	}
	return &Client{
		conn:   conn,
		client: kvpb.NewKVServiceClient(conn),
	}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Get performs a linearizable read on one node.
func (c *Client) Get(ctx context.Context, key, clientID string, seq int64) (string, bool, error) {
	resp, err := c.client.Get(ctx, &kvpb.GetRequest{Key: key, ClientId: clientID, Seq: seq})
	if err != nil {
		return "", false, fromGRPCStatus(err)
	}
	return resp.Value, resp.Found, nil
}

// Put sends a write request to one node.
func (c *Client) Put(ctx context.Context, key, value, clientID string, seq int64) error {
	_, err := c.client.Put(ctx, &kvpb.PutRequest{Key: key, Value: value, ClientId: clientID, Seq: seq})
	return fromGRPCStatus(err)
}

// Append sends an append request to one node.
func (c *Client) Append(ctx context.Context, key, value, clientID string, seq int64) error {
	_, err := c.client.Append(ctx, &kvpb.AppendRequest{Key: key, Value: value, ClientId: clientID, Seq: seq})
	return fromGRPCStatus(err)
}

// Status fetches the node's status.
func (c *Client) Status(ctx context.Context) (*kvpb.StatusResponse, error) {
	return c.client.Status(ctx, &kvpb.StatusRequest{})
}

// Clerk talks to the whole cluster and implements the retry contract: every
// request carries the clerk's fixed client id and a per-request sequence
// number that only advances after a definitive success, so servers can
// deduplicate unbounded retries. A Clerk is safe for concurrent use, but
// serializes its logical requests: servers track one session per client id,
// and a later sequence number committing first would suppress an earlier
// in-flight write as a duplicate. Callers wanting parallel writes use one
// Clerk per goroutine.
type Clerk struct {
	clients  []*Client
	clientID string

	// opMu is held across a whole logical request, retries included, so at
	// most one sequence number per clerk is ever outstanding.
	opMu sync.Mutex
	seq  int64

	mu         sync.Mutex
	leaderHint int // -1 means unknown
}

// DialClerk connects to all provided addresses. Connections are lazy, so
// this succeeds even if nodes are temporarily down.
func DialClerk(addrs []string, opts ...grpc.DialOption) (*Clerk, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kv clerk: no addresses provided")
	}
	clients := make([]*Client, 0, len(addrs))
	for _, addr := range addrs {
		c, err := Dial(addr, opts...)
		if err != nil {
			for _, cc := range clients {
				_ = cc.Close()
			}
			return nil, err
		}
		clients = append(clients, c)
	}
	return &Clerk{
		clients:    clients,
		clientID:   uuid.NewString(),
		leaderHint: -1,
	}, nil
}

// Close closes all node connections.
func (ck *Clerk) Close() error {
	var errs []error
	for _, client := range ck.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClientID returns the clerk's fixed identity.
func (ck *Clerk) ClientID() string {
	return ck.clientID
}

// Get reads a key through the leader, retrying until ctx expires.
func (ck *Clerk) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := ck.retry(ctx, func(ctx context.Context, c *Client, seq int64) error {
		v, f, err := c.Get(ctx, key, ck.clientID, seq)
		if err == nil {
			value, found = v, f
		}
		return err
	})
	return value, found, err
}

// Put writes a key through the leader, retrying until ctx expires.
func (ck *Clerk) Put(ctx context.Context, key, value string) error {
	return ck.retry(ctx, func(ctx context.Context, c *Client, seq int64) error {
		return c.Put(ctx, key, value, ck.clientID, seq)
	})
}

// Append appends to a key through the leader, retrying until ctx expires.
func (ck *Clerk) Append(ctx context.Context, key, value string) error {
	return ck.retry(ctx, func(ctx context.Context, c *Client, seq int64) error {
		return c.Append(ctx, key, value, ck.clientID, seq)
	})
}

// retry assigns one sequence number to the logical request and resends the
// identical request until some node reports success. The sequence number is
// never reused for a different request and never advanced by a failure, and
// no new request starts until the previous one has resolved.
func (ck *Clerk) retry(ctx context.Context, call func(context.Context, *Client, int64) error) error {
	ck.opMu.Lock()
	defer ck.opMu.Unlock()

	ck.seq++
	seq := ck.seq

	for attempt := 0; ; attempt++ {
		for _, i := range ck.callOrder() {
			err := call(ctx, ck.clients[i], seq)
			if err == nil {
				ck.setLeaderHint(i)
				return nil
			}
			if ctx.Err() != nil {
				return fmt.Errorf("kv clerk: %w (last error: %v)", ctx.Err(), err)
			}
			if errors.Is(err, ErrNotLeader) {
				ck.clearLeaderHintIf(i)
			}
			// Unavailable or transport error: the request may or may not
			// have committed. Resending the same seq is safe either way.
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("kv clerk: %w", ctx.Err())
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := 20 * time.Millisecond << uint(min(attempt, 5))
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}

func (ck *Clerk) callOrder() []int {
	n := len(ck.clients)
	order := make([]int, 0, n)

	hint := ck.getLeaderHint()
	if hint >= 0 && hint < n {
		order = append(order, hint)
	}
	for _, i := range rand.Perm(n) {
		if i == hint {
			continue
		}
		order = append(order, i)
	}
	return order
}

func (ck *Clerk) getLeaderHint() int {
	ck.mu.Lock()
	defer ck.mu.Unlock()
	return ck.leaderHint
}

func (ck *Clerk) setLeaderHint(i int) {
	ck.mu.Lock()
	defer ck.mu.Unlock()
	ck.leaderHint = i
}

func (ck *Clerk) clearLeaderHintIf(i int) {
	ck.mu.Lock()
	defer ck.mu.Unlock()
	if ck.leaderHint == i {
		ck.leaderHint = -1
	}
}

func fromGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.FailedPrecondition:
			return ErrNotLeader
		case codes.Unavailable:
			return ErrUnavailable
		}
	}
	return err
}
