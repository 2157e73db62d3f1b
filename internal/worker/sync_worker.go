package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nozze/internal/amqp"
	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/sheets"
	"nozze/internal/storage"
)

// startupBatches bounds the catch-up pass run when the worker starts.
const startupBatches = 5

// SyncWorker exports budget items and seating charts from SQLite to a
// spreadsheet backend.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.Exporter
	metrics   *metrics.Metrics
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, exporter sheets.Exporter, m *metrics.Metrics, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		exporter:  exporter,
		metrics:   m,
		batchSize: batchSize,
	}
}

// HandleMessage processes one sync message from AMQP. A returned error makes
// the consumer requeue the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		log.FieldMessageKind, msg.Kind,
		log.FieldWeddingID, msg.WeddingID,
		"entity_id", msg.EntityID,
		log.FieldVersion, msg.Version)

	var err error
	switch msg.Kind {
	case amqp.KindBudgetItemChanged:
		err = w.exportBudgetItem(ctx, msg.EntityID)
	case amqp.KindBudgetItemDeleted:
		err = w.exporter.DeleteBudgetItem(ctx, msg.EntityID)
	case amqp.KindSeatingAssigned:
		err = w.exportSeating(ctx, msg.WeddingID)
	default:
		err = fmt.Errorf("%w: %q", amqp.ErrUnknownKind, msg.Kind)
	}

	w.metrics.ObserveSync(msg.Kind, err)
	if err != nil {
		return fmt.Errorf("handle %s: %w", msg.Kind, err)
	}
	return nil
}

// ProcessPending re-exports budget items and seating charts whose latest
// version has not reached the sheet yet. It is the backup path for lost AMQP
// messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.ListUnsyncedBudgetItems(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending budget items: %w", err)
	}
	if len(pending) > 0 {
		slog.InfoContext(ctx, "Processing pending budget items", "count", len(pending))
	}

	synced := 0
	for _, item := range pending {
		err := w.upsert(ctx, item)
		w.metrics.ObserveSync(amqp.KindBudgetItemChanged, err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export budget item", log.FieldBudgetItemID, item.ID, "error", err)
			continue
		}
		synced++
	}

	charts, err := w.storage.ListUnsyncedSeating(ctx, w.batchSize)
	if err != nil {
		return synced, fmt.Errorf("list pending seating: %w", err)
	}
	for _, c := range charts {
		err := w.exportSeating(ctx, c.WeddingID)
		w.metrics.ObserveSync(amqp.KindSeatingAssigned, err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export seating chart", log.FieldWeddingID, c.WeddingID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck drains the backlog left while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for range startupBatches {
		n, err := w.ProcessPending(ctx)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		total += n
		if n < w.batchSize {
			break
		}
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	return nil
}

func (w *SyncWorker) exportBudgetItem(ctx context.Context, itemID int64) error {
	item, err := w.storage.GetBudgetItem(ctx, itemID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the change was published; the delete message follows.
		slog.DebugContext(ctx, "Budget item no longer exists", log.FieldBudgetItemID, itemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get budget item: %w", err)
	}
	return w.upsert(ctx, item)
}

func (w *SyncWorker) upsert(ctx context.Context, item core.BudgetItem) error {
	if err := w.exporter.UpsertBudgetItem(ctx, item); err != nil {
		return fmt.Errorf("export budget item %d: %w", item.ID, err)
	}
	if err := w.storage.MarkBudgetItemSynced(ctx, item.ID, item.Version); err != nil {
		// The export worked; the next pending pass only rewrites the same row.
		slog.ErrorContext(ctx, "Failed to mark budget item synced", log.FieldBudgetItemID, item.ID, "error", err)
	}
	slog.InfoContext(ctx, "Exported budget item",
		log.FieldBudgetItemID, item.ID,
		log.FieldVersion, item.Version,
		log.FieldPaymentStatus, string(item.Status))
	return nil
}

// exportSeating rewrites the wedding's chart and marks the version read
// before listing as synced. A change landing mid-export bumps the version
// again, so the next pending pass picks it up.
func (w *SyncWorker) exportSeating(ctx context.Context, weddingID int64) error {
	version, err := w.storage.SeatingVersion(ctx, weddingID)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Wedding no longer exists", log.FieldWeddingID, weddingID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("seating version: %w", err)
	}
	tables, err := w.storage.ListTables(ctx, weddingID)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	guests, err := w.storage.ListGuests(ctx, weddingID, storage.GuestFilter{})
	if err != nil {
		return fmt.Errorf("list guests: %w", err)
	}
	if err := w.exporter.ReplaceSeating(ctx, weddingID, tables, guests); err != nil {
		return fmt.Errorf("export seating: %w", err)
	}
	if err := w.storage.MarkSeatingSynced(ctx, weddingID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark seating synced", log.FieldWeddingID, weddingID, "error", err)
	}
	slog.InfoContext(ctx, "Exported seating chart",
		log.FieldWeddingID, weddingID,
		log.FieldVersion, version,
		"tables", len(tables))
	return nil
}
