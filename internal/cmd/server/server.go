// Package server parses server command flags and boots the game and
// telemetry runtimes behind the HTTP API.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/louisbranch/latchkey.house/internal/game/content"
	"github.com/louisbranch/latchkey.house/internal/game/domain"
	"github.com/louisbranch/latchkey.house/internal/game/rules"
	"github.com/louisbranch/latchkey.house/internal/game/service"
	entrypoint "github.com/louisbranch/latchkey.house/internal/platform/cmd"
	"github.com/louisbranch/latchkey.house/internal/platform/id"
	"github.com/louisbranch/latchkey.house/internal/storage"
	"github.com/louisbranch/latchkey.house/internal/storage/bbolt"
	"github.com/louisbranch/latchkey.house/internal/storage/sqlite"
	"github.com/louisbranch/latchkey.house/internal/telemetry/budget"
)

// PlayerIDKey is the local-store key holding the persistent player id.
const PlayerIDKey = "player/id"

const shutdownTimeout = 5 * time.Second

// Config holds server command configuration.
type Config struct {
	Port            int    `env:"LATCHKEY_PORT" envDefault:"8080"`
	Addr            string `env:"LATCHKEY_ADDR"`
	DataDir         string `env:"LATCHKEY_DATA_DIR" envDefault:"data"`
	RemoteDB        string `env:"LATCHKEY_REMOTE_DB"`
	PlayerMode      string `env:"LATCHKEY_PLAYER_MODE" envDefault:"normal"`
	DiagnosticsLog  string `env:"LATCHKEY_DIAGNOSTICS_LOG"`
	TelemetryWrites int64  `env:"LATCHKEY_TELEMETRY_WRITES" envDefault:"40"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for the local player store")
	fs.StringVar(&cfg.RemoteDB, "remote-db", cfg.RemoteDB, "Path to the analytics document store")
	fs.StringVar(&cfg.PlayerMode, "player-mode", cfg.PlayerMode, "Player mode: normal, admin or tester")
	fs.StringVar(&cfg.DiagnosticsLog, "diagnostics-log", cfg.DiagnosticsLog, "Rotated diagnostics log file (default stderr)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	logger, closeLogger := newLogger(cfg.DiagnosticsLog)
	defer closeLogger()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	local, err := bbolt.Open(filepath.Join(cfg.DataDir, "local.db"))
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer local.Close()

	remotePath := cfg.RemoteDB
	if remotePath == "" {
		remotePath = filepath.Join(cfg.DataDir, "remote.db")
	}
	remote, err := sqlite.Open(remotePath)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer remote.Close()

	catalog, err := content.Load()
	if err != nil {
		return fmt.Errorf("load content catalog: %w", err)
	}

	playerID, err := ensurePlayerID(ctx, local)
	if err != nil {
		return fmt.Errorf("establish player id: %w", err)
	}

	mode := domain.ParsePlayerMode(cfg.PlayerMode)
	var recorder rules.Recorder = rules.NopRecorder{}
	if mode.RecordsStatistics() {
		recorder = service.NewProgressRecorder(remote, logger)
	}
	controller := service.New(local, recorder, mode, logger)
	controller.Restore(ctx)

	// The budget gate is the boot barrier: no telemetry subsystem exists
	// until it grants, and none is ever constructed when it denies.
	var tele *telemetryRuntime
	gate := budget.NewGate(remote, logger)
	if gate.Reserve(ctx, cfg.TelemetryWrites) {
		tele, err = newTelemetryRuntime(ctx, local, remote, controller, catalog, playerID, logger)
		if err != nil {
			return fmt.Errorf("start telemetry: %w", err)
		}
		go tele.watcher.Run(ctx)
	} else {
		logger.Printf("telemetry budget exhausted, running without analytics")
	}

	api := newAPI(controller, catalog, tele, logger)

	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: api,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	logger.Printf("listening on %s", addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	tele.shutdown(shutdownCtx)
	return nil
}

// ensurePlayerID loads the persistent player id, minting one on first run.
func ensurePlayerID(ctx context.Context, local storage.LocalStore) (string, error) {
	stored, err := local.Get(ctx, PlayerIDKey)
	if err == nil && len(stored) > 0 {
		return string(stored), nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	playerID, err := id.NewID()
	if err != nil {
		return "", err
	}
	if err := local.Set(ctx, PlayerIDKey, []byte(playerID)); err != nil {
		return "", err
	}
	return playerID, nil
}

func newLogger(path string) (*log.Logger, func()) {
	if path == "" {
		return log.Default(), func() {}
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	writer := io.MultiWriter(os.Stderr, rotated)
	return log.New(writer, "", log.LstdFlags), func() { rotated.Close() }
}
