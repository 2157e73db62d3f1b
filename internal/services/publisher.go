package services

import (
	"context"
	"log/slog"
)

// SyncPublisher announces changes to the export worker. *amqp.Client
// implements it.
type SyncPublisher interface {
	PublishBudgetItemChanged(ctx context.Context, weddingID, itemID, version int64) error
	PublishBudgetItemDeleted(ctx context.Context, weddingID, itemID int64) error
	PublishSeatingAssigned(ctx context.Context, weddingID int64) error
}

// notify runs publish unless the publisher is missing. Failures are logged and
// never surface to the caller: the database is the source of truth and the
// worker's periodic pass catches up.
func notify(ctx context.Context, p SyncPublisher, what string, publish func(SyncPublisher) error) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping sync message", "kind", what)
		return
	}
	if err := publish(p); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "kind", what, "error", err)
	}
}
