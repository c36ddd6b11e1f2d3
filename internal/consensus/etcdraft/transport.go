package etcdraft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.etcd.io/etcd/raft/v3/raftpb"
)

const (
	messagePath      = "/raft/message"
	transportTimeout = 3 * time.Second
	sendRetries      = 3
	sendRetryDelay   = 100 * time.Millisecond

	contentTypeProtobuf = "application/x-protobuf"
)

// Transport moves raft messages between peers over HTTP. Outbound messages
// are protobuf-encoded POSTs; inbound messages are stepped into the local
// raft node via the step callback.
type Transport struct {
	nodeID uint64
	step   func(ctx context.Context, msg raftpb.Message) error
	logger Logger

	peersMu sync.RWMutex
	peers   map[uint64]string

	httpClient *http.Client
	httpServer *http.Server
}

// NewTransport creates a transport for nodeID with the given peer address
// map. step is invoked for every inbound message.
func NewTransport(nodeID uint64, peers map[uint64]string, step func(context.Context, raftpb.Message) error, logger Logger) *Transport {
	copied := make(map[uint64]string, len(peers))
	for id, addr := range peers {
		copied[id] = addr
	}
	return &Transport{
		nodeID: nodeID,
		step:   step,
		logger: logger,
		peers:  copied,
		httpClient: &http.Client{
			Timeout: transportTimeout,
		},
	}
}

// Start begins listening for inbound peer traffic on addr.
func (t *Transport) Start(addr string) {
	r := chi.NewRouter()
	r.Post(messagePath, t.handleMessage)

	t.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		if err := t.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("raft transport server error", "error", err)
		}
	}()
	t.logger.Info("raft transport listening", "addr", addr)
}

// Stop shuts the inbound listener down.
func (t *Transport) Stop() error {
	if t.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), transportTimeout)
	defer cancel()
	if err := t.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("raft transport: shutdown: %w", err)
	}
	return nil
}

// Send delivers one message to its destination peer, retrying transient
// failures. Delivery is best effort; raft tolerates message loss.
func (t *Transport) Send(msg raftpb.Message) error {
	t.peersMu.RLock()
	addr, ok := t.peers[msg.To]
	t.peersMu.RUnlock()
	if !ok {
		return fmt.Errorf("raft transport: unknown peer %d", msg.To)
	}

	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("raft transport: marshal message: %w", err)
	}

	url := addr + messagePath
	var lastErr error
	for attempt := 0; attempt < sendRetries; attempt++ {
		if err := t.post(url, body); err != nil {
			lastErr = err
			time.Sleep(sendRetryDelay * time.Duration(attempt+1))
			continue
		}
		return nil
	}
	return fmt.Errorf("raft transport: send to %d failed after %d attempts: %w", msg.To, sendRetries, lastErr)
}

// AddPeer registers a peer address.
func (t *Transport) AddPeer(id uint64, addr string) {
	t.peersMu.Lock()
	defer t.peersMu.Unlock()
	t.peers[id] = addr
}

// RemovePeer forgets a peer.
func (t *Transport) RemovePeer(id uint64) {
	t.peersMu.Lock()
	defer t.peersMu.Unlock()
	delete(t.peers, id)
}

func (t *Transport) post(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), transportTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeProtobuf)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (t *Transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var msg raftpb.Message
	if err := msg.Unmarshal(body); err != nil {
		http.Error(w, "unmarshal message: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := t.step(r.Context(), msg); err != nil {
		http.Error(w, "step message: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
