package app

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
)

func startSideServer(t *testing.T, build func() (*http.Server, net.Listener, error)) string {
	t.Helper()
	srv, lis, err := build()
	if err != nil {
		t.Fatalf("side server: %v", err)
	}
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { _ = srv.Close() })
	return lis.Addr().String()
}

func TestSideServersDisabledWithoutAddr(t *testing.T) {
	a := &App{config: Config{}}

	if srv, lis, err := a.metricsServer(); srv != nil || lis != nil || err != nil {
		t.Errorf("metricsServer() = (%v, %v, %v), want all nil", srv, lis, err)
	}
	if srv, lis, err := a.pprofServer(); srv != nil || lis != nil || err != nil {
		t.Errorf("pprofServer() = (%v, %v, %v), want all nil", srv, lis, err)
	}
}

func TestMetricsServerExposesRuntimeCollectors(t *testing.T) {
	a := &App{config: Config{MetricsAddr: "127.0.0.1:0"}}
	addr := startSideServer(t, a.metricsServer)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("runtime collectors missing from /metrics output")
	}
}

func TestPprofServerServesNamedProfiles(t *testing.T) {
	a := &App{config: Config{PprofAddr: "127.0.0.1:0"}}
	addr := startSideServer(t, a.pprofServer)

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/goroutine?debug=1"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
