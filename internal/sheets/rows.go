package sheets

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"nozze/internal/core"
)

// Column headers of the exported sheets.
var (
	BudgetHeader  = []string{"ID", "Wedding", "Category", "Description", "Estimated", "Actual", "Paid", "Status", "Paid date", "Due date", "Version"}
	SeatingHeader = []string{"Wedding", "Table", "Seat", "Guest", "Group", "Side", "Dietary"}
)

// Unseated is the table label used for confirmed guests without a table.
const Unseated = "(da assegnare)"

// BudgetRow renders an item as one sheet row, matching BudgetHeader.
// Amounts are decimal euros so the sheet can sum them.
func BudgetRow(b core.BudgetItem) []any {
	return []any{
		b.ID,
		b.WeddingID,
		b.Category,
		b.Description,
		optionalEuros(b.EstimatedCost),
		optionalEuros(b.ActualCost),
		euros(b.PaidAmount),
		string(b.Status),
		optionalDate(b.PaidDate),
		optionalDate(b.DueDate),
		b.Version,
	}
}

// SeatingRows renders the seating chart of a wedding: seated guests grouped by
// table in display order, then confirmed guests still waiting for a seat.
func SeatingRows(weddingID int64, tables []core.Table, guests []core.Guest) [][]any {
	ordered := slices.Clone(tables)
	slices.SortStableFunc(ordered, func(a, b core.Table) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})

	byTable := map[int64][]core.Guest{}
	var unseated []core.Guest
	for _, g := range guests {
		switch {
		case g.TableID != nil:
			byTable[*g.TableID] = append(byTable[*g.TableID], g)
		case g.RSVPStatus == core.RSVPConfirmed:
			unseated = append(unseated, g)
		}
	}

	var rows [][]any
	for _, t := range ordered {
		for i, g := range byTable[t.ID] {
			rows = append(rows, guestRow(weddingID, t.Name, i+1, g))
		}
	}
	for _, g := range unseated {
		rows = append(rows, guestRow(weddingID, Unseated, 0, g))
	}
	return rows
}

func guestRow(weddingID int64, table string, seat int, g core.Guest) []any {
	seatCell := any("")
	if seat > 0 {
		seatCell = seat
	}
	return []any{weddingID, table, seatCell, g.FullName(), g.Group, string(g.Side), g.Dietary}
}

// FindRow returns the 0-based index of the first data row whose first cell is
// id, skipping the header row. It returns -1 when there is none.
func FindRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if cell(row[0]) == want {
			return i
		}
	}
	return -1
}

// MergeSeating keeps the rows of other weddings and replaces those of
// weddingID with rows. The header row is always first.
func MergeSeating(existing [][]any, weddingID int64, rows [][]any) [][]any {
	out := [][]any{header(SeatingHeader)}
	want := strconv.FormatInt(weddingID, 10)
	for i, row := range existing {
		if i == 0 || len(row) == 0 {
			continue
		}
		if cell(row[0]) == want {
			continue
		}
		out = append(out, row)
	}
	return append(out, rows...)
}

func header(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// cell normalizes a value read back from the API, where numbers may arrive
// as float64 or as formatted strings.
func cell(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func euros(m core.Money) string {
	return strconv.FormatFloat(m.Euros(), 'f', 2, 64)
}

func optionalEuros(m *core.Money) string {
	if m == nil {
		return ""
	}
	return euros(*m)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
