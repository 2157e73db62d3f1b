package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingExporter re-exports changes that the message path missed.
// worker.SyncWorker implements it.
type PendingExporter interface {
	ProcessPending(ctx context.Context) (int, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to look for unsynced items (default: 1m)
	PollInterval time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: time.Minute,
	}
}

// SyncProcessor periodically asks an exporter to catch up on unsynced budget
// items and seating charts, so a lost AMQP message only delays an export.
type SyncProcessor struct {
	exporter PendingExporter
	config   SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(exporter PendingExporter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		exporter: exporter,
		config:   config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for the current pass.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Catch up immediately on startup
	p.processOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processOnce(ctx)
		}
	}
}

func (p *SyncProcessor) processOnce(ctx context.Context) {
	n, err := p.exporter.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Periodic export failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Periodic export caught up", "exported", n)
	}
}
