package storage

import (
	"context"
	"fmt"
	"strings"

	"nozze/internal/core"
)

// VendorFilter narrows ListVendors. Zero values match everything.
type VendorFilter struct {
	Status   core.VendorStatus
	Category string
}

const vendorColumns = `id, wedding_id, name, category, contact_name, email, phone, status, notes`

func scanVendor(s rowScanner) (core.Vendor, error) {
	var v core.Vendor
	err := s.Scan(&v.ID, &v.WeddingID, &v.Name, &v.Category, &v.ContactName, &v.Email, &v.Phone, &v.Status, &v.Notes)
	return v, err
}

func (q *Queries) CreateVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO vendors (wedding_id, name, category, contact_name, email, phone, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		v.WeddingID, v.Name, v.Category, v.ContactName, v.Email, v.Phone, string(v.Status), v.Notes).Scan(&v.ID)
	if err != nil {
		return core.Vendor{}, fmt.Errorf("insert vendor: %w", err)
	}
	return v, nil
}

func (q *Queries) GetVendor(ctx context.Context, id int64) (core.Vendor, error) {
	v, err := scanVendor(q.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if err != nil {
		return core.Vendor{}, notFound(err, "vendor", id)
	}
	return v, nil
}

func (q *Queries) ListVendors(ctx context.Context, weddingID int64, f VendorFilter) ([]core.Vendor, error) {
	var (
		where = []string{"wedding_id = ?"}
		args  = []any{weddingID}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}

	rows, err := q.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE `+
		strings.Join(where, " AND ")+` ORDER BY category, name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var out []core.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *Queries) CountVendors(ctx context.Context, weddingID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors WHERE wedding_id = ?`, weddingID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vendors: %w", err)
	}
	return n, nil
}

func (q *Queries) UpdateVendor(ctx context.Context, v core.Vendor) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE vendors
		SET name = ?, category = ?, contact_name = ?, email = ?, phone = ?, status = ?, notes = ?
		WHERE id = ?`,
		v.Name, v.Category, v.ContactName, v.Email, v.Phone, string(v.Status), v.Notes, v.ID)
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	return expectOne(res, "vendor", v.ID)
}

func (q *Queries) DeleteVendor(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	return expectOne(res, "vendor", id)
}
