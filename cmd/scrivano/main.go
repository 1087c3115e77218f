// Command scrivano is the streaming speech-to-text transcription server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrivano/scrivano/internal/config"
	"github.com/scrivano/scrivano/internal/health"
	"github.com/scrivano/scrivano/internal/observe"
	"github.com/scrivano/scrivano/internal/recording"
	"github.com/scrivano/scrivano/internal/resilience"
	"github.com/scrivano/scrivano/internal/server"
	"github.com/scrivano/scrivano/pkg/provider/stt"
	sttmock "github.com/scrivano/scrivano/pkg/provider/stt/mock"
	"github.com/scrivano/scrivano/pkg/provider/stt/whisper"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scrivano: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scrivano: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("scrivano starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.Addr(),
		"stt_backend", cfg.STT.Provider.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "scrivano",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── STT backend ───────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	tr, err := buildTranscriber(cfg, reg)
	if err != nil {
		// Model loading is the one unrecoverable startup failure.
		slog.Error("failed to build STT backend", "err", err)
		return 1
	}

	// ── Config watcher: hot log-level reload ──────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.RestartRequired {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Server ────────────────────────────────────────────────────────────────
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(observe.DefaultMetrics()),
		server.WithTranscribeOptions(transcribeOptions(cfg.STT.Provider)),
		server.WithHealthCheckers(modelChecker(cfg.STT.Provider)),
	}
	if cfg.Recording.Enabled {
		opts = append(opts, server.WithArchiver(
			recording.NewArchiver(cfg.Recording.Path(), recording.WithLogger(logger)),
		))
		slog.Info("session recording enabled", "dir", cfg.Recording.Path())
	}

	srv := server.New(cfg.Server, tr, opts...)

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBuiltinBackends wires the STT backend factories that ship with
// scrivano into reg.
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		if entry.Threads > 0 {
			opts = append(opts, whisper.WithThreads(entry.Threads))
		}
		return whisper.New(entry.Model, opts...)
	})

	// mock transcribes nothing; useful for wiring and load checks without a
	// model file.
	reg.RegisterSTT("mock", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{}, nil
	})
}

// buildTranscriber instantiates the primary backend and, when configured,
// wraps it together with the fallback behind per-backend circuit breakers.
func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Transcriber, error) {
	primary, err := reg.CreateSTT(cfg.STT.Provider)
	if err != nil {
		return nil, fmt.Errorf("create stt backend %q: %w", cfg.STT.Provider.Name, err)
	}
	slog.Info("stt backend created", "name", cfg.STT.Provider.Name, "model", cfg.STT.Provider.Model)

	if cfg.STT.Fallback == nil {
		return primary, nil
	}

	fallback, err := reg.CreateSTT(*cfg.STT.Fallback)
	if err != nil {
		return nil, fmt.Errorf("create stt fallback %q: %w", cfg.STT.Fallback.Name, err)
	}

	fb := resilience.NewSTTFallback(primary, cfg.STT.Provider.Name, resilience.FallbackConfig{})
	fb.AddFallback(cfg.STT.Fallback.Name, fallback)
	slog.Info("stt fallback enabled", "name", cfg.STT.Fallback.Name)
	return fb, nil
}

// transcribeOptions derives per-session decoding options from the backend
// entry.
func transcribeOptions(entry config.ProviderEntry) stt.Options {
	opts := stt.DefaultOptions()
	if entry.Language != "" {
		opts.Language = entry.Language
	}
	if v, ok := entry.Options["beam_size"]; ok {
		if n, ok := v.(int); ok && n > 0 {
			opts.BeamSize = n
		}
	}
	return opts
}

// modelChecker reports readiness based on the configured model file. The
// model itself is loaded at startup; this guards against the file vanishing
// underneath a running server.
func modelChecker(entry config.ProviderEntry) health.Checker {
	return health.Checker{
		Name: "model",
		Check: func(context.Context) error {
			if entry.Model == "" {
				return nil
			}
			_, err := os.Stat(entry.Model)
			return err
		},
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
