package sheets

import (
	"context"

	"nozze/internal/core"
)

// Ports for outbound export adapters.
type (
	BudgetExporter interface {
		// UpsertBudgetItem writes the item's row, replacing any row with the same id.
		UpsertBudgetItem(ctx context.Context, item core.BudgetItem) error
		// DeleteBudgetItem removes the item's row. A missing row is not an error.
		DeleteBudgetItem(ctx context.Context, itemID int64) error
	}

	SeatingExporter interface {
		// ReplaceSeating rewrites the seating chart of one wedding.
		ReplaceSeating(ctx context.Context, weddingID int64, tables []core.Table, guests []core.Guest) error
	}

	// Exporter is implemented by every backend the worker can write to.
	Exporter interface {
		BudgetExporter
		SeatingExporter
	}
)
