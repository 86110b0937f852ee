package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brickcat/internal/catalog"
	"brickcat/internal/config"
	"brickcat/internal/logger"
	"brickcat/internal/metrics"
	"brickcat/internal/network"
	"brickcat/internal/wire"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 10 * time.Second

// CLI flags. Set flags override the config file.
type CLI struct {
	Config      string        `short:"c" type:"path" help:"TOML config file"`
	Addr        string        `help:"Address to listen on (default 127.0.0.1:4000)"`
	DataDir     string        `type:"path" help:"Directory holding the Rebrickable CSV exports"`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address"`
	ReadTimeout time.Duration `help:"Close connections idle for this long (0 waits forever)"`
	LogLevel    string        `help:"debug, info, warn or error"`
	LogFile     string        `type:"path" help:"Also write logs to this file"`
	Quiet       bool          `short:"q" help:"Disable info logging (log only errors)"`
}

func (c *CLI) apply(cfg *config.ServerConfig) {
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}
	if c.MetricsAddr != "" {
		cfg.MetricsAddr = c.MetricsAddr
	}
	if c.ReadTimeout != 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
	if c.Quiet {
		cfg.LogLevel = "error"
	}
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("brickcat-server"),
		kong.Description("Serve a Rebrickable parts catalog over TCP."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cli); err != nil {
		logger.Fatal("Server error: %v", err)
	}
}

func run(ctx context.Context, cli *CLI) error {
	cfg, err := config.LoadServerConfig(cli.Config)
	if err != nil {
		return err
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		out = io.MultiWriter(os.Stdout, logFile)
	}
	logger.Setup(out)
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	logger.Info("----------------------------------------")
	logger.Info("Catalog server initializing from %s", cfg.DataDir)

	store, err := catalog.LoadDir(cfg.DataDir)
	if err != nil {
		return err
	}
	stats := store.Stats()
	metrics.SetCatalog(store.Fingerprint(), stats.Parts, stats.Colors, stats.Elements)
	logger.Info("Catalog fingerprint %s", store.Fingerprint())

	srv := network.NewServer(store, network.Config{
		PollInterval: cfg.PollInterval,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Limits:       wire.Limits{MaxFrameBytes: cfg.MaxFrameBytes},
		AcceptRate:   cfg.AcceptRate,
		AcceptBurst:  cfg.AcceptBurst,
	})

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(cfg.Addr); !errors.Is(err, network.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("Metrics listening on %s", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Forced shutdown: %v", err)
		}
		return nil
	})

	logger.Info("Server starting on %s. Press Ctrl+C to stop.", cfg.Addr)
	return g.Wait()
}
