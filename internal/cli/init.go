// Package cli holds the start-up steps shared by cmd/nozze, cmd/nozze-worker
// and cmd/nozzectl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nozze/internal/config"
	"nozze/internal/log"
	"nozze/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is not an
// error: in production the environment is set by the container.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_FORMAT and LOG_LEVEL and
// makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return SetupLoggerTo(cfg, component, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to out. A nil cfg keeps the defaults.
func SetupLoggerTo(cfg *config.Config, component string, out io.Writer) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Component = component
	logCfg.Output = out
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		if cfg.LogFormat != "" {
			logCfg.Format = cfg.LogFormat
		}
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig for main packages: it exits on an invalid
// configuration. The logger does not exist yet, so the error goes to stderr.
func MustLoadConfig() *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStorage opens the repository, applying pending migrations.
func OpenStorage(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	if v, dirty, err := storage.MigrationVersion(dbPath); err == nil {
		logger.Info("SQLite repository ready", "path", dbPath, "schema_version", v, "dirty", dirty)
	}
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Shutdown runs each step with a shared deadline and logs the failures. It
// returns once every step has returned or the deadline has passed.
func Shutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, step := range steps {
			if err := step(ctx); err != nil {
				logger.Error("Shutdown step failed", log.FieldError, err, log.FieldOperation, log.OpShutdown)
			}
		}
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	}
}
