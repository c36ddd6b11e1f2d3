package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config contains runtime settings for a node process.
type Config struct {
	NodeID   string `yaml:"node_id"`
	RaftID   uint64 `yaml:"raft_id"`
	LogLevel string `yaml:"log_level"`

	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	RaftAddr string `yaml:"raft_addr"`

	MetricsAddr string `yaml:"metrics_addr"`
	PprofAddr   string `yaml:"pprof_addr"`

	DataDir string `yaml:"data_dir"`

	// Peers lists cluster members as "raft-id=http://host:port" entries,
	// including this node.
	Peers []string `yaml:"peers"`

	CommitWaitTimeout      time.Duration `yaml:"commit_wait_timeout"`
	SnapshotThresholdBytes int64         `yaml:"snapshot_threshold_bytes"`

	TracingEnabled     bool   `yaml:"tracing_enabled"`
	TracingEndpoint    string `yaml:"tracing_endpoint"`
	TracingServiceName string `yaml:"tracing_service_name"`
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		NodeID:                 "node-1",
		RaftID:                 1,
		LogLevel:               "info",
		GRPCAddr:               ":8080",
		HTTPAddr:               ":8081",
		RaftAddr:               ":9090",
		DataDir:                "./var/node-1",
		Peers:                  []string{"1=http://localhost:9090"},
		CommitWaitTimeout:      2 * time.Second,
		SnapshotThresholdBytes: 1 << 20,
		TracingServiceName:     "linearkv",
	}
}

// LoadConfig builds the effective configuration: defaults, then the optional
// YAML file at path, then environment overrides.
//
// Supported vars:
// - LKV_NODE_ID
// - LKV_RAFT_ID (uint)
// - LKV_LOG_LEVEL (debug|info|warn|error)
// - LKV_GRPC_ADDR
// - LKV_HTTP_ADDR
// - LKV_RAFT_ADDR
// - LKV_METRICS_ADDR
// - LKV_PPROF_ADDR
// - LKV_DATA_DIR
// - LKV_PEERS (comma-separated "raft-id=url" entries)
// - LKV_COMMIT_WAIT_TIMEOUT (duration, e.g. "2s")
// - LKV_SNAPSHOT_THRESHOLD_BYTES (int, 0 = service default)
// - LKV_TRACING_ENABLED (bool)
// - LKV_TRACING_ENDPOINT
// - LKV_TRACING_SERVICE_NAME
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("app: read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("app: parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("LKV_NODE_ID")); v != "" {
		cfg.NodeID = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_RAFT_ID")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("app: invalid LKV_RAFT_ID %q: %w", v, err)
		}
		cfg.RaftID = id
	}
	if v := strings.TrimSpace(os.Getenv("LKV_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LKV_GRPC_ADDR")); v != "" {
		cfg.GRPCAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_RAFT_ADDR")); v != "" {
		cfg.RaftAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_PPROF_ADDR")); v != "" {
		cfg.PprofAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_PEERS")); v != "" {
		cfg.Peers = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("LKV_COMMIT_WAIT_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("app: invalid LKV_COMMIT_WAIT_TIMEOUT %q: %w", v, err)
		}
		cfg.CommitWaitTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("LKV_SNAPSHOT_THRESHOLD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("app: invalid LKV_SNAPSHOT_THRESHOLD_BYTES %q: %w", v, err)
		}
		cfg.SnapshotThresholdBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("LKV_TRACING_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("app: invalid LKV_TRACING_ENABLED %q: %w", v, err)
		}
		cfg.TracingEnabled = b
	}
	if v := strings.TrimSpace(os.Getenv("LKV_TRACING_ENDPOINT")); v != "" {
		cfg.TracingEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("LKV_TRACING_SERVICE_NAME")); v != "" {
		cfg.TracingServiceName = v
	}
	return nil
}

// Validate checks that required settings are present and supported.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NodeID) == "" {
		return fmt.Errorf("app: node id is required")
	}
	if c.RaftID == 0 {
		return fmt.Errorf("app: raft id must be non-zero")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app: unsupported log level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return fmt.Errorf("app: grpc addr is required")
	}
	if strings.TrimSpace(c.RaftAddr) == "" {
		return fmt.Errorf("app: raft addr is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("app: data dir is required")
	}
	if c.CommitWaitTimeout < 0 {
		return fmt.Errorf("app: commit wait timeout must not be negative")
	}
	if c.SnapshotThresholdBytes < 0 {
		return fmt.Errorf("app: snapshot threshold must not be negative")
	}
	if _, err := c.PeerMap(); err != nil {
		return err
	}
	if c.TracingEnabled && strings.TrimSpace(c.TracingEndpoint) == "" {
		return fmt.Errorf("app: tracing endpoint is required when tracing is enabled")
	}
	return nil
}

// PeerMap parses Peers into a map of raft-id -> transport URL.
func (c Config) PeerMap() (map[uint64]string, error) {
	out := make(map[uint64]string, len(c.Peers))
	for _, raw := range c.Peers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		left, right, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("app: invalid peer entry %q, want \"raft-id=url\"", raw)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(left), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("app: invalid peer id in %q", raw)
		}
		addr := strings.TrimSpace(right)
		if addr == "" {
			return nil, fmt.Errorf("app: empty peer address in %q", raw)
		}
		if _, exists := out[id]; exists {
			return nil, fmt.Errorf("app: duplicate peer id %d", id)
		}
		out[id] = addr
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("app: at least one peer is required")
	}
	return out, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
