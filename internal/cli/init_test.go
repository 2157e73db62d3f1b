package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nozze/internal/config"
	"nozze/internal/log"
)

func TestSetupLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&config.Config{LogFormat: "json", LogLevel: "warn"}, log.ComponentWorker, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"worker"`) {
		t.Errorf("expected json warn line with component, got %s", out)
	}
}

func TestOpenStorageMigratesFreshDatabase(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(nil, log.ComponentCLI, &buf)

	repo, err := OpenStorage(logger, filepath.Join(t.TempDir(), "nozze.db"))
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	defer repo.Close()

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !strings.Contains(buf.String(), "SQLite repository ready") {
		t.Errorf("expected ready log line, got %s", buf.String())
	}
}

func TestShutdownRunsEveryStep(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(nil, log.ComponentApp, &buf)

	var ran []string
	Shutdown(logger, time.Second,
		func(context.Context) error { ran = append(ran, "a"); return errors.New("boom") },
		func(context.Context) error { ran = append(ran, "b"); return nil },
	)

	if strings.Join(ran, ",") != "a,b" {
		t.Errorf("steps ran = %v", ran)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected failing step to be logged, got %s", buf.String())
	}
}
