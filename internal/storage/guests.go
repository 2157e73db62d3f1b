package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nozze/internal/core"
)

// GuestFilter narrows ListGuests. Zero values match everything.
type GuestFilter struct {
	RSVP  core.RSVPStatus
	Side  core.Side
	Group string
	Query string // matched against first name, last name and email
}

const guestColumns = `id, wedding_id, first_name, last_name, email, phone, group_name, side,
	rsvp_status, plus_one, dietary, table_id, created_at, updated_at`

func scanGuest(s rowScanner) (core.Guest, error) {
	var (
		g       core.Guest
		tableID sql.NullInt64
	)
	err := s.Scan(&g.ID, &g.WeddingID, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.Group,
		&g.Side, &g.RSVPStatus, &g.PlusOne, &g.Dietary, &tableID, &g.CreatedAt, &g.UpdatedAt)
	g.TableID = int64Ptr(tableID)
	return g, err
}

func (q *Queries) CreateGuest(ctx context.Context, g core.Guest) (core.Guest, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO guests (wedding_id, first_name, last_name, email, phone, group_name, side,
			rsvp_status, plus_one, dietary, table_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.WeddingID, g.FirstName, g.LastName, g.Email, g.Phone, g.Group, string(g.Side),
		string(g.RSVPStatus), g.PlusOne, g.Dietary, nullInt64(g.TableID))
	if err != nil {
		return core.Guest{}, fmt.Errorf("insert guest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Guest{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetGuest(ctx, id)
}

func (q *Queries) GetGuest(ctx context.Context, id int64) (core.Guest, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id)
	g, err := scanGuest(row)
	if err != nil {
		return core.Guest{}, notFound(err, "guest", id)
	}
	return g, nil
}

// ListGuests returns the guests of a wedding in insertion order.
func (q *Queries) ListGuests(ctx context.Context, weddingID int64, f GuestFilter) ([]core.Guest, error) {
	var (
		where = []string{"wedding_id = ?"}
		args  = []any{weddingID}
	)
	if f.RSVP != "" {
		where = append(where, "rsvp_status = ?")
		args = append(args, string(f.RSVP))
	}
	if f.Side != "" {
		where = append(where, "side = ?")
		args = append(args, string(f.Side))
	}
	if f.Group != "" {
		where = append(where, "group_name = ?")
		args = append(args, f.Group)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, "(lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?)")
		args = append(args, like, like, like)
	}

	query := `SELECT ` + guestColumns + ` FROM guests WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	return q.queryGuests(ctx, query, args...)
}

// ListSeatableGuests returns confirmed guests without a table, in retrieval
// order. This is the input of automatic seat assignment.
func (q *Queries) ListSeatableGuests(ctx context.Context, weddingID int64) ([]core.Guest, error) {
	return q.queryGuests(ctx, `SELECT `+guestColumns+` FROM guests
		WHERE wedding_id = ? AND rsvp_status = 'confirmed' AND table_id IS NULL
		ORDER BY id`, weddingID)
}

// ListSeatedGuests returns every guest with a table, grouped by table.
func (q *Queries) ListSeatedGuests(ctx context.Context, weddingID int64) ([]core.Guest, error) {
	return q.queryGuests(ctx, `SELECT `+guestColumns+` FROM guests
		WHERE wedding_id = ? AND table_id IS NOT NULL
		ORDER BY table_id, last_name, first_name, id`, weddingID)
}

func (q *Queries) queryGuests(ctx context.Context, query string, args ...any) ([]core.Guest, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	var out []core.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListGroups returns the distinct non-empty guest groups of a wedding.
func (q *Queries) ListGroups(ctx context.Context, weddingID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT group_name FROM guests
		WHERE wedding_id = ? AND group_name <> '' ORDER BY group_name`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateGuest(ctx context.Context, g core.Guest) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE guests
		SET first_name = ?, last_name = ?, email = ?, phone = ?, group_name = ?, side = ?,
			rsvp_status = ?, plus_one = ?, dietary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		g.FirstName, g.LastName, g.Email, g.Phone, g.Group, string(g.Side),
		string(g.RSVPStatus), g.PlusOne, g.Dietary, g.ID)
	if err != nil {
		return fmt.Errorf("update guest: %w", err)
	}
	return expectOne(res, "guest", g.ID)
}

// SetGuestRSVP updates the RSVP status. A guest who stops being confirmed
// loses their seat.
func (q *Queries) SetGuestRSVP(ctx context.Context, id int64, status core.RSVPStatus) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE guests
		SET rsvp_status = ?,
			table_id = CASE WHEN ? = 'confirmed' THEN table_id ELSE NULL END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, string(status), string(status), id)
	if err != nil {
		return fmt.Errorf("update guest rsvp: %w", err)
	}
	return expectOne(res, "guest", id)
}

// SetGuestTable seats a guest at a table, or unseats them when tableID is nil.
func (q *Queries) SetGuestTable(ctx context.Context, guestID int64, tableID *int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE guests SET table_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nullInt64(tableID), guestID)
	if err != nil {
		return fmt.Errorf("update guest table: %w", err)
	}
	return expectOne(res, "guest", guestID)
}

// ClearSeating unseats every guest of a wedding and returns how many moved.
func (q *Queries) ClearSeating(ctx context.Context, weddingID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE guests SET table_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE wedding_id = ? AND table_id IS NOT NULL`, weddingID)
	if err != nil {
		return 0, fmt.Errorf("clear seating: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteGuest(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return expectOne(res, "guest", id)
}
