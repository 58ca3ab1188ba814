// Package main implements the entry point for the PlotStream daemon.
// PlotStream ingests delimited numeric telemetry from a serial device,
// a network stream, or a synthetic generator, keeps a fixed window of it
// in a multi-channel ring store, and writes CSV/WAV exports on shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/plotstream/config"
	"github.com/c360/plotstream/export"
	"github.com/c360/plotstream/manager"
	"github.com/c360/plotstream/metric"
	"github.com/c360/plotstream/parse"
	"github.com/c360/plotstream/pkg/retry"
	"github.com/c360/plotstream/store"
	"github.com/c360/plotstream/transport"
	"github.com/c360/plotstream/transport/netstream"
	"github.com/c360/plotstream/transport/serial"
	"github.com/c360/plotstream/transport/synth"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "plotstream"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML configuration (defaults apply when empty)")
	validateOnly := flag.Bool("validate", false, "validate configuration and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	if *validateOnly {
		logger.Info("Configuration is valid")
		return nil
	}

	registry := metric.NewMetricsRegistry()

	st, err := store.New(cfg.Store.Capacity,
		store.WithLogger(logger.With("component", "store")),
		store.WithMetrics(registry))
	if err != nil {
		return err
	}

	sink := parse.NewSink(st, logger.With("component", "sink"))

	retryCfg := retry.DefaultConfig()
	mgr, err := manager.NewManager(manager.Deps{
		Backends: []transport.Backend{
			serial.NewBackend(serial.Deps{Logger: logger.With("component", "serial")}),
			netstream.NewBackend(netstream.Deps{
				Logger:      logger.With("component", "netstream"),
				RetryConfig: &retryCfg,
			}),
			synth.NewBackend(synth.Deps{Logger: logger.With("component", "synth")}),
		},
		Sink:            sink.Handler(),
		Logger:          logger.With("component", "manager"),
		MetricsRegistry: registry,
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Connect(ctx, cfg.Transport.KindValue(), cfg.Transport.Params()); err != nil {
		return err
	}
	logger.Info("Transport connected",
		"kind", cfg.Transport.Kind,
		"capacity", cfg.Store.Capacity)

	group, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := metric.NewServer(cfg.Metrics.Addr, "/metrics", registry)
		group.Go(srv.Start)
		group.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})
		logger.Info("Metrics endpoint listening", "addr", cfg.Metrics.Addr)
	}

	group.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Shutting down")

	mgr.Disconnect()

	return exportOnShutdown(st, cfg.Export, logger)
}

// exportOnShutdown writes the retained window out in the configured formats.
// Missing paths mean the corresponding format is skipped.
func exportOnShutdown(st *store.Store, cfg config.ExportConfig, logger *slog.Logger) error {
	if cfg.CSVPath == "" && cfg.WAVPath == "" {
		return nil
	}

	sn := st.Snapshot(store.All())
	if len(sn.Series) == 0 {
		logger.Info("No data captured, skipping export")
		return nil
	}

	if cfg.CSVPath != "" {
		if err := writeFile(cfg.CSVPath, func(f *os.File) error {
			return export.WriteCSV(f, sn, export.CSVOptions{
				IncludeTimestamp: cfg.IncludeTimestamp,
				Mode:             timestampMode(cfg.TimestampMode),
			})
		}); err != nil {
			return err
		}
		logger.Info("CSV export written", "path", cfg.CSVPath, "rows", len(sn.Times))
	}

	if cfg.WAVPath != "" {
		if err := writeFile(cfg.WAVPath, func(f *os.File) error {
			return export.WriteWAV(f, sn, cfg.SampleRate)
		}); err != nil {
			return err
		}
		logger.Info("WAV export written",
			"path", cfg.WAVPath,
			"channels", len(sn.Series),
			"frames", len(sn.Times))
	}

	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func timestampMode(mode string) export.TimestampMode {
	switch mode {
	case "absolute":
		return export.TimestampAbsolute
	case "raw":
		return export.TimestampRaw
	default:
		return export.TimestampRelative
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
