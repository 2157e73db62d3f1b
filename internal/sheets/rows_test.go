package sheets

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nozze/internal/core"
)

func ptr[T any](v T) *T { return &v }

func TestBudgetRow(t *testing.T) {
	paid := time.Date(2026, 5, 3, 15, 4, 0, 0, time.UTC)
	row := BudgetRow(core.BudgetItem{
		ID:            7,
		WeddingID:     2,
		Category:      "Catering",
		Description:   "Menu degustazione",
		EstimatedCost: &core.Money{Cents: 1200000},
		PaidAmount:    core.Money{Cents: 50050},
		Status:        core.PaymentPartial,
		PaidDate:      &paid,
		Version:       4,
	})

	want := []any{int64(7), int64(2), "Catering", "Menu degustazione", "12000.00", "", "500.50", "partial", "2026-05-03", "", int64(4)}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Errorf("BudgetRow mismatch (-want +got):\n%s", diff)
	}
	if len(row) != len(BudgetHeader) {
		t.Errorf("row has %d cells, header has %d", len(row), len(BudgetHeader))
	}
}

func TestSeatingRows(t *testing.T) {
	tables := []core.Table{
		{ID: 2, Name: "Amici", Order: 2},
		{ID: 1, Name: "Sposi", Order: 1},
	}
	guests := []core.Guest{
		{ID: 10, FirstName: "Anna", LastName: "Rossi", TableID: ptr(int64(1)), RSVPStatus: core.RSVPConfirmed, Side: core.SideBride},
		{ID: 11, FirstName: "Luca", TableID: ptr(int64(2)), RSVPStatus: core.RSVPConfirmed, Group: "Università"},
		{ID: 12, FirstName: "Marco", TableID: ptr(int64(1)), RSVPStatus: core.RSVPConfirmed, Dietary: "vegano"},
		{ID: 13, FirstName: "Sara", RSVPStatus: core.RSVPConfirmed},
		{ID: 14, FirstName: "Ugo", RSVPStatus: core.RSVPDeclined},
	}

	got := SeatingRows(5, tables, guests)
	want := [][]any{
		{int64(5), "Sposi", 1, "Anna Rossi", "", "bride", ""},
		{int64(5), "Sposi", 2, "Marco", "", "", "vegano"},
		{int64(5), "Amici", 1, "Luca", "Università", "", ""},
		{int64(5), Unseated, "", "Sara", "", "", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SeatingRows mismatch (-want +got):\n%s", diff)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID", "Wedding"},
		{"3", "1"},
		{},
		{float64(12), "1"},
	}
	tests := []struct {
		id   int64
		want int
	}{
		{3, 1},
		{12, 3},
		{4, -1},
	}
	for _, tt := range tests {
		if got := FindRow(values, tt.id); got != tt.want {
			t.Errorf("FindRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestMergeSeating(t *testing.T) {
	existing := [][]any{
		{"Wedding", "Table"},
		{"1", "Old"},
		{"2", "Keep"},
		{"1", "Old too"},
	}
	got := MergeSeating(existing, 1, [][]any{{int64(1), "New"}})
	want := [][]any{
		header(SeatingHeader),
		{"2", "Keep"},
		{int64(1), "New"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeSeating mismatch (-want +got):\n%s", diff)
	}

	if got := MergeSeating(nil, 1, nil); len(got) != 1 {
		t.Errorf("empty merge should keep only the header, got %v", got)
	}
}
