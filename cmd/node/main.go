// Package main implements the node process that runs the consensus engine
// and the KV APIs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.opentelemetry.io/otel"

	apppkg "github.com/linearkv/linearkv/internal/app"
	"github.com/linearkv/linearkv/internal/consensus/etcdraft"
	"github.com/linearkv/linearkv/internal/kv"
	"github.com/linearkv/linearkv/internal/observability/metrics"
	"github.com/linearkv/linearkv/internal/service"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "node: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "optional YAML config file; env vars override it")
	flag.Parse()

	cfg, err := apppkg.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	logger := slog.Default()

	peers, err := cfg.PeerMap()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	node, err := etcdraft.NewNode(etcdraft.Config{
		ID:         cfg.RaftID,
		Peers:      peers,
		ListenAddr: cfg.RaftAddr,
		DataPath:   filepath.Join(cfg.DataDir, "raft.db"),
	}, logger)
	if err != nil {
		return err
	}

	prom, err := metrics.NewPrometheus(nil)
	if err != nil {
		node.Stop()
		return err
	}

	tracer := otel.Tracer("github.com/linearkv/linearkv")
	store := kv.NewStore(tracer)

	kvSvc := service.NewKV(node, store, logger, tracer, prom, cfg.NodeID)
	if cfg.CommitWaitTimeout > 0 {
		kvSvc.CommitWaitTimeout = cfg.CommitWaitTimeout
	}
	if cfg.SnapshotThresholdBytes > 0 {
		kvSvc.SnapshotThresholdBytes = cfg.SnapshotThresholdBytes
	}

	app, err := apppkg.New(cfg, logger, node, kvSvc)
	if err != nil {
		node.Stop()
		return err
	}
	defer app.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
