package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"nozze/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the values API the client uses, backed by
// one grid per sheet name.
type fakeSheets struct {
	mu    sync.Mutex
	grids map[string][][]any
	calls []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rest, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	op := ""
	for _, suffix := range []string{":append", ":clear"} {
		if strings.HasSuffix(rest, suffix) {
			op = suffix[1:]
			rest = strings.TrimSuffix(rest, suffix)
		}
	}
	sheet, cells, _ := strings.Cut(rest, "!")
	f.calls = append(f.calls, r.Method+" "+op+" "+rest)

	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"range": rest, "values": f.grids[sheet]})
		return
	case r.Method == http.MethodPut:
		var vr struct{ Values [][]any }
		json.NewDecoder(r.Body).Decode(&vr)
		start := startRow(cells)
		for len(f.grids[sheet]) < start-1+len(vr.Values) {
			f.grids[sheet] = append(f.grids[sheet], nil)
		}
		for i, row := range vr.Values {
			f.grids[sheet][start-1+i] = row
		}
	case op == "append":
		var vr struct{ Values [][]any }
		json.NewDecoder(r.Body).Decode(&vr)
		f.grids[sheet] = append(f.grids[sheet], vr.Values...)
	case op == "clear":
		if n := startRow(cells); n > 0 && strings.ContainsAny(cells, "0123456789") {
			f.grids[sheet][n-1] = nil
		} else {
			delete(f.grids, sheet)
		}
	}
	w.Write([]byte("{}"))
}

// startRow parses the row of an A1 reference such as "A3" or "A3:K3".
func startRow(cells string) int {
	cells, _, _ = strings.Cut(cells, ":")
	n, err := strconv.Atoi(strings.TrimLeft(cells, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil {
		return 1
	}
	return n
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{grids: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-1"}), fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.UpsertBudgetItem(context.Background(), core.BudgetItem{ID: 1}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestClient_UpsertBudgetItem(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	item := core.BudgetItem{ID: 4, WeddingID: 1, Category: "Fiori", Status: core.PaymentPending, Version: 1}
	if err := c.UpsertBudgetItem(ctx, item); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	other := core.BudgetItem{ID: 9, WeddingID: 1, Category: "Musica", Status: core.PaymentPending, Version: 1}
	if err := c.UpsertBudgetItem(ctx, other); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	item.Status = core.PaymentPartial
	item.PaidAmount = core.Money{Cents: 1000}
	item.Version = 2
	if err := c.UpsertBudgetItem(ctx, item); err != nil {
		t.Fatalf("update upsert: %v", err)
	}

	grid := fake.grids[DefaultBudgetSheet]
	if len(grid) != 3 {
		t.Fatalf("expected header and two rows, got %d rows: %v", len(grid), grid)
	}
	if grid[0][0] != "ID" {
		t.Errorf("missing header row: %v", grid[0])
	}
	if grid[1][2] != "Fiori" || grid[1][7] != "partial" || grid[1][6] != "10.00" {
		t.Errorf("row for item 4 not updated in place: %v", grid[1])
	}
	if grid[2][2] != "Musica" {
		t.Errorf("unexpected second row: %v", grid[2])
	}

	if err := c.DeleteBudgetItem(ctx, 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fake.grids[DefaultBudgetSheet][1] != nil {
		t.Errorf("deleted row not cleared: %v", fake.grids[DefaultBudgetSheet][1])
	}
	if err := c.DeleteBudgetItem(ctx, 404); err != nil {
		t.Errorf("deleting a missing row should be a no-op, got %v", err)
	}
}

func TestClient_ReplaceSeating(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)
	fake.grids[DefaultSeatingSheet] = [][]any{
		{"Wedding", "Table"},
		{"2", "Altro matrimonio"},
		{"1", "Vecchio tavolo"},
	}

	tableID := int64(3)
	tables := []core.Table{{ID: tableID, Name: "Sposi", Capacity: 4}}
	guests := []core.Guest{{ID: 1, FirstName: "Anna", TableID: &tableID, RSVPStatus: core.RSVPConfirmed}}
	if err := c.ReplaceSeating(ctx, 1, tables, guests); err != nil {
		t.Fatalf("ReplaceSeating: %v", err)
	}

	grid := fake.grids[DefaultSeatingSheet]
	if len(grid) != 3 {
		t.Fatalf("expected 3 rows, got %v", grid)
	}
	if grid[1][1] != "Altro matrimonio" {
		t.Errorf("other wedding's rows must be kept: %v", grid[1])
	}
	if grid[2][1] != "Sposi" || grid[2][3] != "Anna" {
		t.Errorf("unexpected seating row: %v", grid[2])
	}
}
