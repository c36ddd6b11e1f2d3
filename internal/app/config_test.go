package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.NodeID != "node-1" || cfg.RaftID != 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LKV_NODE_ID", "node-7")
	t.Setenv("LKV_RAFT_ID", "7")
	t.Setenv("LKV_PEERS", "7=http://a:9090, 8=http://b:9090")
	t.Setenv("LKV_COMMIT_WAIT_TIMEOUT", "500ms")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.NodeID != "node-7" || cfg.RaftID != 7 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.CommitWaitTimeout != 500*time.Millisecond {
		t.Errorf("commit wait timeout = %v, want 500ms", cfg.CommitWaitTimeout)
	}

	peers, err := cfg.PeerMap()
	if err != nil {
		t.Fatalf("PeerMap() error = %v", err)
	}
	if peers[7] != "http://a:9090" || peers[8] != "http://b:9090" {
		t.Errorf("unexpected peer map: %v", peers)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	raw := `node_id: node-3
raft_id: 3
log_level: debug
grpc_addr: ":7080"
raft_addr: ":7090"
data_dir: /tmp/node-3
peers:
  - 3=http://c:7090
snapshot_threshold_bytes: 2097152
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.NodeID != "node-3" || cfg.RaftID != 3 || cfg.GRPCAddr != ":7080" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.SnapshotThresholdBytes != 2097152 {
		t.Errorf("snapshot threshold = %d, want 2097152", cfg.SnapshotThresholdBytes)
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty node id", func(c *Config) { c.NodeID = " " }},
		{"zero raft id", func(c *Config) { c.RaftID = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"no peers", func(c *Config) { c.Peers = nil }},
		{"malformed peer", func(c *Config) { c.Peers = []string{"http://a:9090"} }},
		{"duplicate peer", func(c *Config) { c.Peers = []string{"1=http://a", "1=http://b"} }},
		{"tracing without endpoint", func(c *Config) { c.TracingEnabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
