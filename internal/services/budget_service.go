package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/storage"
)

// BudgetService orchestrates budget items and payments across SQLite and AMQP.
type BudgetService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewBudgetService(storage *storage.SQLiteRepository, publisher SyncPublisher, m *metrics.Metrics) *BudgetService {
	return &BudgetService{
		storage:   storage,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateItem saves a new item with its payment state derived from the
// initial paid amount.
func (s *BudgetService) CreateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	item.Category = strings.TrimSpace(item.Category)
	if err := item.Validate(); err != nil {
		return core.BudgetItem{}, err
	}
	if err := s.checkVendor(ctx, s.storage.Queries, item); err != nil {
		return core.BudgetItem{}, err
	}
	if _, err := s.storage.GetWedding(ctx, item.WeddingID); err != nil {
		return core.BudgetItem{}, err
	}

	core.DerivePaymentState(item, s.now()).Apply(&item)

	created, err := s.storage.CreateBudgetItem(ctx, item)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("save budget item: %w", err)
	}

	s.itemChanged(ctx, created)
	return created, nil
}

// UpdateItem stores the editable fields of item. The paid amount is owned by
// RecordPayment and is kept; the status is re-derived against the new costs.
func (s *BudgetService) UpdateItem(ctx context.Context, item core.BudgetItem) (core.BudgetItem, error) {
	item.Category = strings.TrimSpace(item.Category)

	var updated core.BudgetItem
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetBudgetItem(ctx, item.ID)
		if err != nil {
			return err
		}

		next := current
		next.VendorID = item.VendorID
		next.Category = item.Category
		next.Description = item.Description
		next.EstimatedCost = item.EstimatedCost
		next.ActualCost = item.ActualCost
		next.DueDate = item.DueDate
		next.Notes = item.Notes
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.checkVendor(ctx, q, next); err != nil {
			return err
		}

		core.DerivePaymentState(next, s.now()).Apply(&next)
		version, err := q.UpdateBudgetItem(ctx, next)
		if err != nil {
			return err
		}
		next.Version = version
		updated = next
		return nil
	})
	if err != nil {
		return core.BudgetItem{}, err
	}

	s.itemChanged(ctx, updated)
	return updated, nil
}

func (s *BudgetService) DeleteItem(ctx context.Context, id int64) error {
	item, err := s.storage.GetBudgetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteBudgetItem(ctx, id); err != nil {
		return err
	}

	notify(ctx, s.publisher, "budget_item.deleted", func(p SyncPublisher) error {
		return p.PublishBudgetItemDeleted(ctx, item.WeddingID, id)
	})
	return nil
}

// RecordPayment adds amount to the item's paid total, derives the new status
// and appends the payment to the item's history, all in one transaction.
func (s *BudgetService) RecordPayment(ctx context.Context, itemID int64, amount core.Money, method, note string) (core.BudgetItem, error) {
	if err := amount.Validate(); err != nil {
		return core.BudgetItem{}, err
	}

	now := s.now()
	var item core.BudgetItem
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		item, err = q.GetBudgetItem(ctx, itemID)
		if err != nil {
			return err
		}

		// The calculator assumes the new total fits; an overflowing total
		// would wrap negative and read as pending.
		if _, err := item.PaidAmount.CheckedAdd(amount); err != nil {
			return fmt.Errorf("paid total: %w", err)
		}
		st := core.ApplyPayment(item.PaidAmount, amount, item.ActualCost, item.EstimatedCost, now)
		version, err := q.SetPaymentState(ctx, itemID, st)
		if err != nil {
			return err
		}
		_, err = q.CreatePayment(ctx, core.Payment{
			BudgetItemID: itemID,
			Amount:       amount,
			PaidAt:       now,
			Method:       strings.TrimSpace(method),
			Note:         strings.TrimSpace(note),
		})
		if err != nil {
			return err
		}

		st.Apply(&item)
		item.Version = version
		return nil
	})
	if err != nil {
		return core.BudgetItem{}, err
	}

	s.metrics.ObservePayment(string(item.Status), amount.Cents)
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogPaymentRecorded(ctx, itemID, amount.Cents, item.PaidAmount.Cents, string(item.Status))

	s.itemChanged(ctx, item)
	return item, nil
}

func (s *BudgetService) Payments(ctx context.Context, itemID int64) ([]core.Payment, error) {
	if _, err := s.storage.GetBudgetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.storage.ListPayments(ctx, itemID)
}

// Summary totals the wedding budget.
func (s *BudgetService) Summary(ctx context.Context, weddingID int64) (core.BudgetSummary, error) {
	w, err := s.storage.GetWedding(ctx, weddingID)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	items, err := s.storage.ListBudgetItems(ctx, weddingID, storage.BudgetFilter{})
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return core.SummarizeBudget(w.TotalBudget, items), nil
}

func (s *BudgetService) checkVendor(ctx context.Context, q *storage.Queries, item core.BudgetItem) error {
	if item.VendorID == nil {
		return nil
	}
	v, err := q.GetVendor(ctx, *item.VendorID)
	if err != nil {
		return err
	}
	if v.WeddingID != item.WeddingID {
		return core.ErrWeddingMismatch
	}
	return nil
}

func (s *BudgetService) itemChanged(ctx context.Context, item core.BudgetItem) {
	notify(ctx, s.publisher, "budget_item.changed", func(p SyncPublisher) error {
		return p.PublishBudgetItemChanged(ctx, item.WeddingID, item.ID, item.Version)
	})
}
