package storage

import (
	"context"
	"fmt"

	"nozze/internal/core"
)

// Occupancy is never stored: it is the number of guests pointing at the table.
const tableSelect = `SELECT t.id, t.wedding_id, t.name, t.capacity, t.display_order, t.notes,
	(SELECT COUNT(*) FROM guests g WHERE g.table_id = t.id) AS occupancy
	FROM seating_tables t`

func scanTable(s rowScanner) (core.Table, error) {
	var t core.Table
	err := s.Scan(&t.ID, &t.WeddingID, &t.Name, &t.Capacity, &t.Order, &t.Notes, &t.Occupancy)
	return t, err
}

func (q *Queries) CreateTable(ctx context.Context, t core.Table) (core.Table, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO seating_tables (wedding_id, name, capacity, display_order, notes)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		t.WeddingID, t.Name, t.Capacity, t.Order, t.Notes).Scan(&id)
	if err != nil {
		return core.Table{}, fmt.Errorf("insert table: %w", err)
	}
	t.ID = id
	t.Occupancy = 0
	return t, nil
}

func (q *Queries) GetTable(ctx context.Context, id int64) (core.Table, error) {
	t, err := scanTable(q.db.QueryRowContext(ctx, tableSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return core.Table{}, notFound(err, "table", id)
	}
	return t, nil
}

// ListTables returns the tables of a wedding in display order with their
// current occupancy.
func (q *Queries) ListTables(ctx context.Context, weddingID int64) ([]core.Table, error) {
	rows, err := q.db.QueryContext(ctx, tableSelect+` WHERE t.wedding_id = ? ORDER BY t.display_order, t.id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []core.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateTable(ctx context.Context, t core.Table) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE seating_tables SET name = ?, capacity = ?, display_order = ?, notes = ?
		WHERE id = ?`,
		t.Name, t.Capacity, t.Order, t.Notes, t.ID)
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	return expectOne(res, "table", t.ID)
}

// DeleteTable removes a table. Its guests become unseated.
func (q *Queries) DeleteTable(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM seating_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	return expectOne(res, "table", id)
}

// SeatingSync names a wedding whose seating chart changed since its last export.
type SeatingSync struct {
	WeddingID int64
	Version   int64
}

// SeatingVersion returns the wedding's seating version. Triggers bump it on
// every table change and every guest row that enters, leaves or sits at a table.
func (q *Queries) SeatingVersion(ctx context.Context, weddingID int64) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, `SELECT seating_version FROM weddings WHERE id = ?`, weddingID).Scan(&v)
	if err != nil {
		return 0, notFound(err, "wedding", weddingID)
	}
	return v, nil
}

// ListUnsyncedSeating returns weddings whose latest seating version has not
// been exported yet.
func (q *Queries) ListUnsyncedSeating(ctx context.Context, limit int) ([]SeatingSync, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, seating_version FROM weddings
		WHERE seating_synced_version < seating_version
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced seating: %w", err)
	}
	defer rows.Close()

	var out []SeatingSync
	for rows.Next() {
		var s SeatingSync
		if err := rows.Scan(&s.WeddingID, &s.Version); err != nil {
			return nil, fmt.Errorf("scan seating sync: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkSeatingSynced records that the chart at version has been exported. An
// older version never overwrites a newer mark.
func (q *Queries) MarkSeatingSynced(ctx context.Context, weddingID, version int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE weddings SET seating_synced_version = ?
		WHERE id = ? AND seating_synced_version < ?`, version, weddingID, version)
	if err != nil {
		return fmt.Errorf("mark seating synced: %w", err)
	}
	return nil
}
