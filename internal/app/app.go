// Package app wires the consensus engine, state machine, and transports
// together into a runnable node.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/linearkv/linearkv/internal/consensus"
	"github.com/linearkv/linearkv/internal/service"
	kvgrpc "github.com/linearkv/linearkv/internal/transport/grpc/kv"
	"github.com/linearkv/linearkv/internal/transport/httpapi"
	kvpb "github.com/linearkv/linearkv/pkg/proto/kvv1"
)

// Logger is the logging interface required by App.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// App wires consensus and the KV service into a runnable node. All
// dependencies are injected; App does not create transport connections.
type App struct {
	config Config
	logger Logger
	engine consensus.Consensus
	kv     *service.KV
}

// New validates dependencies and constructs a runnable application.
func New(cfg Config, logger Logger, engine consensus.Consensus, kvSvc *service.KV) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("app: nil logger")
	}
	if engine == nil {
		return nil, fmt.Errorf("app: nil consensus engine")
	}
	if kvSvc == nil {
		return nil, fmt.Errorf("app: nil kv service")
	}
	return &App{
		config: cfg,
		logger: logger,
		engine: engine,
		kv:     kvSvc,
	}, nil
}

// Stop stops the underlying consensus engine.
func (a *App) Stop() {
	a.engine.Stop()
}

// Run starts the engine, the apply loop, and all listeners, then blocks
// until ctx is canceled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	shutdownTracing, err := a.initTracing(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	go a.engine.Run(ctx)

	lis, err := net.Listen("tcp", a.config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", a.config.GRPCAddr, err)
	}
	defer func() { _ = lis.Close() }()

	a.logger.Info(
		"node started",
		"node_id", a.config.NodeID,
		"raft_id", a.config.RaftID,
		"grpc_addr", a.config.GRPCAddr,
		"http_addr", a.config.HTTPAddr,
	)

	return a.serve(ctx, lis)
}

// serve registers the gRPC services, starts background goroutines and side
// listeners, and blocks until ctx is canceled or a fatal error occurs.
func (a *App) serve(ctx context.Context, lis net.Listener) error {
	server := grpc.NewServer()
	kvpb.RegisterKVServiceServer(server, kvgrpc.NewServer(a.kv))
	reflection.Register(server)

	var apiServer *httpapi.Server
	if a.config.HTTPAddr != "" {
		apiServer = httpapi.NewServer(a.config.HTTPAddr, a.kv, a.logger)
		apiServer.Start()
		defer func() {
			if err := apiServer.Stop(); err != nil {
				a.logger.Warn("http api shutdown failed", "error", err)
			}
		}()
	}

	metricsSrv, metricsLis, err := a.metricsServer()
	if err != nil {
		return err
	}
	pprofSrv, pprofLis, err := a.pprofServer()
	if err != nil {
		return err
	}

	errCh := make(chan error, 4)

	go func() {
		if err := a.kv.RunApplyLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("kv apply loop: %w", err)
		}
	}()
	go func() {
		if err := server.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	if metricsSrv != nil {
		a.logger.Info("metrics listening", "addr", a.config.MetricsAddr)
		go func() {
			if err := metricsSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics serve: %w", err)
			}
		}()
	}
	if pprofSrv != nil {
		a.logger.Info("pprof listening", "addr", a.config.PprofAddr)
		go func() {
			if err := pprofSrv.Serve(pprofLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("pprof serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		server.GracefulStop()
		shutdownHTTPServer(metricsSrv, a.logger, "metrics server")
		shutdownHTTPServer(pprofSrv, a.logger, "pprof server")
		return nil
	case err := <-errCh:
		server.Stop()
		shutdownHTTPServer(metricsSrv, a.logger, "metrics server")
		shutdownHTTPServer(pprofSrv, a.logger, "pprof server")
		return err
	}
}
