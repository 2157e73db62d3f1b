package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nozze/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nozze.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedWedding(t *testing.T, repo *SQLiteRepository) core.Wedding {
	t.Helper()
	w, err := repo.CreateWedding(context.Background(), core.Wedding{
		OwnerEmail:  "sposi@example.com",
		PartnerOne:  "Anna",
		PartnerTwo:  "Luca",
		Date:        time.Date(2027, 6, 12, 0, 0, 0, 0, time.UTC),
		TotalBudget: core.Money{Cents: 2_500_000},
	})
	if err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	return w
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nozze.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	repo.Close()

	v, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != 3 || dirty {
		t.Fatalf("version = %d dirty = %v, want 3 clean", v, dirty)
	}
}

func TestWeddingCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	got, err := repo.GetWedding(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWedding: %v", err)
	}
	if got.DisplayName() != "Anna & Luca" || !got.Date.Equal(w.Date) {
		t.Fatalf("unexpected wedding: %+v", got)
	}

	got.Venue = "Villa Medici"
	if err := repo.UpdateWedding(ctx, got); err != nil {
		t.Fatalf("UpdateWedding: %v", err)
	}
	list, err := repo.ListWeddings(ctx)
	if err != nil || len(list) != 1 || list[0].Venue != "Villa Medici" {
		t.Fatalf("ListWeddings = %+v, %v", list, err)
	}

	if err := repo.DeleteWedding(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWedding: %v", err)
	}
	if _, err := repo.GetWedding(ctx, w.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGuestsAndTables(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	tbl, err := repo.CreateTable(ctx, core.Table{WeddingID: w.ID, Name: "Tavolo 1", Capacity: 2, Order: 1})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	mk := func(first string, rsvp core.RSVPStatus, group string) core.Guest {
		g, err := repo.CreateGuest(ctx, core.Guest{WeddingID: w.ID, FirstName: first, RSVPStatus: rsvp, Group: group})
		if err != nil {
			t.Fatalf("CreateGuest %s: %v", first, err)
		}
		return g
	}
	anna := mk("Anna", core.RSVPConfirmed, "famiglia")
	bruno := mk("Bruno", core.RSVPConfirmed, "amici")
	mk("Carla", core.RSVPDeclined, "amici")

	seatable, err := repo.ListSeatableGuests(ctx, w.ID)
	if err != nil {
		t.Fatalf("ListSeatableGuests: %v", err)
	}
	var ids []int64
	for _, g := range seatable {
		ids = append(ids, g.ID)
	}
	if diff := cmp.Diff([]int64{anna.ID, bruno.ID}, ids); diff != "" {
		t.Fatalf("seatable guests mismatch (-want +got):\n%s", diff)
	}

	if err := repo.SetGuestTable(ctx, anna.ID, &tbl.ID); err != nil {
		t.Fatalf("SetGuestTable: %v", err)
	}
	tables, err := repo.ListTables(ctx, w.ID)
	if err != nil || len(tables) != 1 || tables[0].Occupancy != 1 {
		t.Fatalf("ListTables = %+v, %v", tables, err)
	}

	amici, err := repo.ListGuests(ctx, w.ID, GuestFilter{Group: "amici"})
	if err != nil || len(amici) != 2 {
		t.Fatalf("group filter = %d guests, %v", len(amici), err)
	}
	search, err := repo.ListGuests(ctx, w.ID, GuestFilter{Query: "BRU"})
	if err != nil || len(search) != 1 || search[0].ID != bruno.ID {
		t.Fatalf("search = %+v, %v", search, err)
	}

	// Declining releases the seat.
	if err := repo.SetGuestRSVP(ctx, anna.ID, core.RSVPDeclined); err != nil {
		t.Fatalf("SetGuestRSVP: %v", err)
	}
	g, err := repo.GetGuest(ctx, anna.ID)
	if err != nil || g.TableID != nil {
		t.Fatalf("declined guest still seated: %+v, %v", g, err)
	}

	// Deleting a table unseats its guests.
	if err := repo.SetGuestTable(ctx, bruno.ID, &tbl.ID); err != nil {
		t.Fatalf("SetGuestTable: %v", err)
	}
	if err := repo.DeleteTable(ctx, tbl.ID); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	g, err = repo.GetGuest(ctx, bruno.ID)
	if err != nil || g.TableID != nil {
		t.Fatalf("guest of deleted table still seated: %+v, %v", g, err)
	}
}

func TestSeatingVersionTracking(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	version := func() int64 {
		t.Helper()
		v, err := repo.SeatingVersion(ctx, w.ID)
		if err != nil {
			t.Fatalf("SeatingVersion: %v", err)
		}
		return v
	}

	g, err := repo.CreateGuest(ctx, core.Guest{WeddingID: w.ID, FirstName: "Anna", RSVPStatus: core.RSVPConfirmed})
	if err != nil {
		t.Fatalf("CreateGuest: %v", err)
	}
	if v := version(); v != 0 {
		t.Fatalf("unseated guest bumped seating version to %d", v)
	}

	tbl, err := repo.CreateTable(ctx, core.Table{WeddingID: w.ID, Name: "Tavolo 1", Capacity: 2})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := repo.SetGuestTable(ctx, g.ID, &tbl.ID); err != nil {
		t.Fatalf("SetGuestTable: %v", err)
	}
	if v := version(); v != 2 {
		t.Fatalf("seating version = %d, want 2", v)
	}

	pending, err := repo.ListUnsyncedSeating(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnsyncedSeating: %v", err)
	}
	if diff := cmp.Diff([]SeatingSync{{WeddingID: w.ID, Version: 2}}, pending); diff != "" {
		t.Fatalf("unsynced seating mismatch (-want +got):\n%s", diff)
	}

	if err := repo.MarkSeatingSynced(ctx, w.ID, 2); err != nil {
		t.Fatalf("MarkSeatingSynced: %v", err)
	}
	// A stale mark never moves the synced version back.
	if err := repo.MarkSeatingSynced(ctx, w.ID, 1); err != nil {
		t.Fatalf("MarkSeatingSynced stale: %v", err)
	}
	if pending, _ := repo.ListUnsyncedSeating(ctx, 10); len(pending) != 0 {
		t.Fatalf("nothing should be pending, got %v", pending)
	}

	// Deleting the table unseats the guest and changes the chart.
	if err := repo.DeleteTable(ctx, tbl.ID); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if pending, _ := repo.ListUnsyncedSeating(ctx, 10); len(pending) != 1 || pending[0].Version <= 2 {
		t.Fatalf("table delete should leave the chart pending, got %v", pending)
	}

	if _, err := repo.SeatingVersion(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing wedding, got %v", err)
	}
}

func TestBudgetItemVersioning(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	item, err := repo.CreateBudgetItem(ctx, core.BudgetItem{
		WeddingID:     w.ID,
		Category:      "Fiori",
		EstimatedCost: &core.Money{Cents: 80000},
		Status:        core.PaymentPending,
	})
	if err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}
	if item.Version != 1 || item.ActualCost != nil {
		t.Fatalf("unexpected new item: %+v", item)
	}

	unsynced, err := repo.ListUnsyncedBudgetItems(ctx, 10)
	if err != nil || len(unsynced) != 1 {
		t.Fatalf("ListUnsyncedBudgetItems = %d, %v", len(unsynced), err)
	}
	if err := repo.MarkBudgetItemSynced(ctx, item.ID, 1); err != nil {
		t.Fatalf("MarkBudgetItemSynced: %v", err)
	}

	paidAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	version, err := repo.SetPaymentState(ctx, item.ID, core.PaymentState{
		PaidAmount: core.Money{Cents: 80000}, Status: core.PaymentPaid, IsPaid: true, PaidDate: &paidAt,
	})
	if err != nil || version != 2 {
		t.Fatalf("SetPaymentState = %d, %v", version, err)
	}

	got, err := repo.GetBudgetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetBudgetItem: %v", err)
	}
	if !got.IsPaid || got.PaidDate == nil || !got.PaidDate.Equal(paidAt) || got.Status != core.PaymentPaid {
		t.Fatalf("payment state not stored: %+v", got)
	}

	// A stale mark must not hide the newer version.
	if err := repo.MarkBudgetItemSynced(ctx, item.ID, 1); err != nil {
		t.Fatalf("MarkBudgetItemSynced: %v", err)
	}
	unsynced, err = repo.ListUnsyncedBudgetItems(ctx, 10)
	if err != nil || len(unsynced) != 1 || unsynced[0].Version != 2 {
		t.Fatalf("expected version 2 pending export, got %+v, %v", unsynced, err)
	}

	paid, err := repo.ListBudgetItems(ctx, w.ID, BudgetFilter{Status: core.PaymentPaid})
	if err != nil || len(paid) != 1 {
		t.Fatalf("status filter = %d, %v", len(paid), err)
	}
}

func TestPaymentsHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)
	item, err := repo.CreateBudgetItem(ctx, core.BudgetItem{WeddingID: w.ID, Category: "Catering", Status: core.PaymentPending})
	if err != nil {
		t.Fatalf("CreateBudgetItem: %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, cents := range []int64{1000, 2500} {
		_, err := repo.CreatePayment(ctx, core.Payment{
			BudgetItemID: item.ID,
			Amount:       core.Money{Cents: cents},
			PaidAt:       base.Add(time.Duration(i) * time.Hour),
			Method:       "bonifico",
		})
		if err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	payments, err := repo.ListPayments(ctx, item.ID)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(payments) != 2 || payments[0].Amount.Cents != 1000 || payments[1].Amount.Cents != 2500 {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateTable(ctx, core.Table{WeddingID: w.ID, Name: "T", Capacity: 4}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	tables, err := repo.ListTables(ctx, w.ID)
	if err != nil || len(tables) != 0 {
		t.Fatalf("rolled back table persisted: %+v, %v", tables, err)
	}
}

func TestTaskToggle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w := seedWedding(t, repo)

	task, err := repo.CreateTask(ctx, core.Task{WeddingID: w.ID, Title: "Prenotare fotografo", Priority: core.PriorityHigh})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	done, err := repo.ToggleTask(ctx, task.ID, now)
	if err != nil || !done.Completed || done.CompletedAt == nil {
		t.Fatalf("toggle on = %+v, %v", done, err)
	}
	open, err := repo.ToggleTask(ctx, task.ID, now)
	if err != nil || open.Completed || open.CompletedAt != nil {
		t.Fatalf("toggle off = %+v, %v", open, err)
	}

	completed := true
	list, err := repo.ListTasks(ctx, w.ID, TaskFilter{Completed: &completed})
	if err != nil || len(list) != 0 {
		t.Fatalf("completed filter = %+v, %v", list, err)
	}
}
