package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nozze/internal/core"
)

// BudgetFilter narrows ListBudgetItems. Zero values match everything.
type BudgetFilter struct {
	Status   core.PaymentStatus
	Category string
}

const budgetColumns = `id, wedding_id, vendor_id, category, description, estimated_cents, actual_cents,
	paid_cents, payment_status, is_paid, paid_date, due_date, notes, version, created_at, updated_at`

func scanBudgetItem(s rowScanner) (core.BudgetItem, error) {
	var (
		b                 core.BudgetItem
		vendorID          sql.NullInt64
		estimated, actual sql.NullInt64
		paidDate, dueDate sql.NullTime
	)
	err := s.Scan(&b.ID, &b.WeddingID, &vendorID, &b.Category, &b.Description, &estimated, &actual,
		&b.PaidAmount.Cents, &b.Status, &b.IsPaid, &paidDate, &dueDate, &b.Notes, &b.Version,
		&b.CreatedAt, &b.UpdatedAt)
	b.VendorID = int64Ptr(vendorID)
	b.EstimatedCost = moneyPtr(estimated)
	b.ActualCost = moneyPtr(actual)
	b.PaidDate = timePtr(paidDate)
	b.DueDate = timePtr(dueDate)
	return b, err
}

func (q *Queries) CreateBudgetItem(ctx context.Context, b core.BudgetItem) (core.BudgetItem, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO budget_items (wedding_id, vendor_id, category, description, estimated_cents,
			actual_cents, paid_cents, payment_status, is_paid, paid_date, due_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.WeddingID, nullInt64(b.VendorID), b.Category, b.Description, nullMoney(b.EstimatedCost),
		nullMoney(b.ActualCost), b.PaidAmount.Cents, string(b.Status), b.IsPaid, nullTime(b.PaidDate),
		nullTime(b.DueDate), b.Notes)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("insert budget item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetBudgetItem(ctx, id)
}

func (q *Queries) GetBudgetItem(ctx context.Context, id int64) (core.BudgetItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budget_items WHERE id = ?`, id)
	b, err := scanBudgetItem(row)
	if err != nil {
		return core.BudgetItem{}, notFound(err, "budget item", id)
	}
	return b, nil
}

func (q *Queries) ListBudgetItems(ctx context.Context, weddingID int64, f BudgetFilter) ([]core.BudgetItem, error) {
	var (
		where = []string{"wedding_id = ?"}
		args  = []any{weddingID}
	)
	if f.Status != "" {
		where = append(where, "payment_status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	query := `SELECT ` + budgetColumns + ` FROM budget_items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY category, id`
	return q.queryBudgetItems(ctx, query, args...)
}

// ListUnsyncedBudgetItems returns items whose latest version has not been
// exported yet, oldest change first.
func (q *Queries) ListUnsyncedBudgetItems(ctx context.Context, limit int) ([]core.BudgetItem, error) {
	return q.queryBudgetItems(ctx, `SELECT `+budgetColumns+` FROM budget_items
		WHERE synced_version < version
		ORDER BY updated_at, id
		LIMIT ?`, limit)
}

func (q *Queries) queryBudgetItems(ctx context.Context, query string, args ...any) ([]core.BudgetItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetItem
	for rows.Next() {
		b, err := scanBudgetItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListCategories returns the distinct budget categories of a wedding.
func (q *Queries) ListCategories(ctx context.Context, weddingID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT category FROM budget_items
		WHERE wedding_id = ? ORDER BY category`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateBudgetItem stores every editable field and the payment state, bumping
// the version. It returns the new version.
func (q *Queries) UpdateBudgetItem(ctx context.Context, b core.BudgetItem) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, `
		UPDATE budget_items
		SET vendor_id = ?, category = ?, description = ?, estimated_cents = ?, actual_cents = ?,
			paid_cents = ?, payment_status = ?, is_paid = ?, paid_date = ?, due_date = ?, notes = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING version`,
		nullInt64(b.VendorID), b.Category, b.Description, nullMoney(b.EstimatedCost), nullMoney(b.ActualCost),
		b.PaidAmount.Cents, string(b.Status), b.IsPaid, nullTime(b.PaidDate), nullTime(b.DueDate), b.Notes,
		b.ID).Scan(&version)
	if err != nil {
		return 0, notFound(err, "budget item", b.ID)
	}
	return version, nil
}

// SetPaymentState stores the fields owned by the payment rules and bumps the
// version. It returns the new version.
func (q *Queries) SetPaymentState(ctx context.Context, id int64, st core.PaymentState) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, `
		UPDATE budget_items
		SET paid_cents = ?, payment_status = ?, is_paid = ?, paid_date = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING version`,
		st.PaidAmount.Cents, string(st.Status), st.IsPaid, nullTime(st.PaidDate), id).Scan(&version)
	if err != nil {
		return 0, notFound(err, "budget item", id)
	}
	return version, nil
}

// MarkBudgetItemSynced records that version has been exported. An older
// version never overwrites a newer mark.
func (q *Queries) MarkBudgetItemSynced(ctx context.Context, id, version int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE budget_items SET synced_version = ?
		WHERE id = ? AND synced_version < ?`, version, id, version)
	if err != nil {
		return fmt.Errorf("mark budget item synced: %w", err)
	}
	return nil
}

func (q *Queries) DeleteBudgetItem(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budget_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget item: %w", err)
	}
	return expectOne(res, "budget item", id)
}

func (q *Queries) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO budget_payments (budget_item_id, amount_cents, paid_at, method, note)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		p.BudgetItemID, p.Amount.Cents, p.PaidAt.UTC(), p.Method, p.Note).Scan(&p.ID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

// ListPayments returns the payment history of an item, oldest first.
func (q *Queries) ListPayments(ctx context.Context, itemID int64) ([]core.Payment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, budget_item_id, amount_cents, paid_at, method, note
		FROM budget_payments WHERE budget_item_id = ?
		ORDER BY paid_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.ID, &p.BudgetItemID, &p.Amount.Cents, &p.PaidAt, &p.Method, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
