package storage

import (
	"context"
	"database/sql"
	"fmt"

	"nozze/internal/core"
)

const weddingColumns = `id, owner_email, partner_one, partner_two, wedding_date, venue,
	total_budget_cents, created_at, updated_at`

func scanWedding(s rowScanner) (core.Wedding, error) {
	var (
		w    core.Wedding
		date sql.NullTime
	)
	err := s.Scan(&w.ID, &w.OwnerEmail, &w.PartnerOne, &w.PartnerTwo, &date, &w.Venue,
		&w.TotalBudget.Cents, &w.CreatedAt, &w.UpdatedAt)
	if date.Valid {
		w.Date = date.Time
	}
	return w, err
}

func weddingDate(w core.Wedding) sql.NullTime {
	if w.Date.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: w.Date.UTC(), Valid: true}
}

func (q *Queries) CreateWedding(ctx context.Context, w core.Wedding) (core.Wedding, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO weddings (owner_email, partner_one, partner_two, wedding_date, venue, total_budget_cents)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.OwnerEmail, w.PartnerOne, w.PartnerTwo, weddingDate(w), w.Venue, w.TotalBudget.Cents)
	if err != nil {
		return core.Wedding{}, fmt.Errorf("insert wedding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Wedding{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetWedding(ctx, id)
}

func (q *Queries) GetWedding(ctx context.Context, id int64) (core.Wedding, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+weddingColumns+` FROM weddings WHERE id = ?`, id)
	w, err := scanWedding(row)
	if err != nil {
		return core.Wedding{}, notFound(err, "wedding", id)
	}
	return w, nil
}

func (q *Queries) ListWeddings(ctx context.Context) ([]core.Wedding, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+weddingColumns+` FROM weddings ORDER BY wedding_date IS NULL, wedding_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list weddings: %w", err)
	}
	defer rows.Close()

	var out []core.Wedding
	for rows.Next() {
		w, err := scanWedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wedding: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateWedding(ctx context.Context, w core.Wedding) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE weddings
		SET owner_email = ?, partner_one = ?, partner_two = ?, wedding_date = ?, venue = ?,
			total_budget_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		w.OwnerEmail, w.PartnerOne, w.PartnerTwo, weddingDate(w), w.Venue, w.TotalBudget.Cents, w.ID)
	if err != nil {
		return fmt.Errorf("update wedding: %w", err)
	}
	return expectOne(res, "wedding", w.ID)
}

// DeleteWedding removes the wedding and, through cascading keys, everything it owns.
func (q *Queries) DeleteWedding(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM weddings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wedding: %w", err)
	}
	return expectOne(res, "wedding", id)
}
