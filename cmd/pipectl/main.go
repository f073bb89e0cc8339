// Command pipectl hosts a registry of in-memory pipes. In serve mode it only
// exposes metrics and health endpoints; in poll and async mode it also copies
// stdin through the first pipe to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/srediag/plugin-pipe/internal/config"
	"github.com/srediag/plugin-pipe/internal/health"
	"github.com/srediag/plugin-pipe/internal/logging"
	"github.com/srediag/plugin-pipe/internal/pump"
	"github.com/srediag/plugin-pipe/pkg/pipe"
	"github.com/srediag/plugin-pipe/pkg/registry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	mode := flag.String("mode", "serve", "serve, poll or async")
	chunk := flag.Int("chunk", pump.DefaultChunk, "copy buffer size for poll and async modes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	pipe.SetLogger(logger.Named("pipe"))

	if err := run(logger, cfg, *mode, *chunk); err != nil {
		logger.Error("pipectl failed", zap.Error(err), zap.String("errno", errnoName(err)))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg *config.Config, mode string, chunk int) error {
	reg, err := registry.New(cfg.Registry())
	if err != nil {
		return err
	}
	defer reg.Close()
	logger.Info("pipes ready", zap.Strings("pipes", reg.Names()), zap.Int("capacity", cfg.Pipes.Capacity))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(cfg.HTTP.Addr, reg)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	switch mode {
	case "serve":
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case err := <-serveErr:
			return err
		}
	case string(pump.ModePoll), string(pump.ModeAsync):
		p, err := reg.Lookup(0)
		if err != nil {
			return err
		}
		pm := &pump.Pump{Pipe: p, Mode: pump.Mode(mode), Chunk: chunk, Logger: logger}
		// Unblock the stdin read on shutdown.
		go func() {
			<-ctx.Done()
			_ = os.Stdin.Close()
		}()
		err = pm.Run(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, pipe.ErrInterrupted) || ctx.Err() != nil {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func newServer(addr string, reg *registry.Registry) *http.Server {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		registry.NewCollector(reg),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := health.NewHandler(reg, health.Options{Registerer: promReg, Namespace: "pipectl"})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{Registry: promReg}))
	mux.Handle("/live", checks)
	mux.Handle("/ready", checks)
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
