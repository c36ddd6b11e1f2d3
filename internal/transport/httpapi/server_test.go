package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/linearkv/linearkv/internal/kv"
	"github.com/linearkv/linearkv/internal/service"
)

// fakeKV applies writes to an in-memory map and can be primed to fail. It
// remembers the last identity it saw so tests can inspect it.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	err     error
	lastCID string
	lastSeq int64
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key, clientID string, seq int64) (kv.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCID, f.lastSeq = clientID, seq
	if f.err != nil {
		return kv.Result{}, f.err
	}
	v, ok := f.data[key]
	return kv.Result{Value: v, Found: ok}, nil
}

func (f *fakeKV) Put(_ context.Context, key, value, clientID string, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCID, f.lastSeq = clientID, seq
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Append(_ context.Context, key, value, clientID string, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCID, f.lastSeq = clientID, seq
	if f.err != nil {
		return f.err
	}
	f.data[key] += value
	return nil
}

func (f *fakeKV) Status() service.Status {
	return service.Status{NodeID: "n1", Term: 3, IsLeader: true, LastApplied: 42}
}

func newTestServer(t *testing.T, handler Handler) *httptest.Server {
	t.Helper()
	s := NewServer("", handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, response) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestPutThenGet(t *testing.T) {
	store := newFakeKV()
	ts := newTestServer(t, store)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/kv/greeting",
		`{"value":"hello","client_id":"c1","seq":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/kv/greeting?client_id=c1&seq=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if body.Value != "hello" {
		t.Errorf("value = %q, want hello", body.Value)
	}
}

func TestAppend(t *testing.T) {
	store := newFakeKV()
	store.data["k"] = "ab"
	ts := newTestServer(t, store)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/kv/k/append",
		`{"value":"cd","client_id":"c1","seq":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append status = %d", resp.StatusCode)
	}
	if got := store.data["k"]; got != "abcd" {
		t.Errorf("stored value = %q, want abcd", got)
	}
}

func TestGetMissingKeyReturns404(t *testing.T) {
	ts := newTestServer(t, newFakeKV())

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/kv/nope?client_id=c1&seq=1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAnonymousRequestGetsGeneratedIdentity(t *testing.T) {
	store := newFakeKV()
	ts := newTestServer(t, store)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/kv/k", `{"value":"v"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous put: status = %d, want 200", resp.StatusCode)
	}
	if store.lastCID == "" {
		t.Error("anonymous put reached the service without a client id")
	}
	if store.lastSeq != 1 {
		t.Errorf("anonymous put seq = %d, want 1", store.lastSeq)
	}
	first := store.lastCID

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/kv/k", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous get: status = %d, want 200", resp.StatusCode)
	}
	// One-shot identities must not alias each other, or the dedup table
	// would treat unrelated requests as retries.
	if store.lastCID == "" || store.lastCID == first {
		t.Errorf("anonymous get reused identity %q", store.lastCID)
	}
}

func TestInvalidSeqRejected(t *testing.T) {
	ts := newTestServer(t, newFakeKV())

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/kv/k", `{"value":"v","client_id":"c1","seq":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("seq 0: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/kv/k?client_id=c1&seq=-3", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative seq: status = %d, want 400", resp.StatusCode)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	store := newFakeKV()
	ts := newTestServer(t, store)

	store.err = service.ErrNotLeader
	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/kv/k", `{"value":"v","client_id":"c1","seq":1}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("not leader: status = %d, want 409", resp.StatusCode)
	}

	store.err = service.ErrCommitTimeout
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/kv/k", `{"value":"v","client_id":"c1","seq":1}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("commit timeout: status = %d, want 503", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, newFakeKV())

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.NodeID != "n1" || st.Term != 3 || !st.IsLeader || st.LastApplied != 42 {
		t.Errorf("unexpected status: %+v", st)
	}
}
