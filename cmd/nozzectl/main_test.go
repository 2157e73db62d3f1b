package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"nozze/internal/core"
	"nozze/internal/metrics"
	"nozze/internal/services"
	"nozze/internal/storage"
)

type seeded struct {
	db      string
	wedding core.Wedding
	item    core.BudgetItem
}

// seed builds a wedding with one table for two, two confirmed guests of the
// same family and one unpaid budget item.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "nozze.db")

	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	w, err := repo.CreateWedding(ctx, core.Wedding{
		OwnerEmail: "sposi@example.com", PartnerOne: "Anna", PartnerTwo: "Luca",
		TotalBudget: core.Money{Cents: 2_000_000},
	})
	if err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	if _, err := repo.CreateTable(ctx, core.Table{WeddingID: w.ID, Name: "Sposi", Capacity: 2, Order: 1}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, name := range []string{"Carla", "Dario"} {
		if _, err := repo.CreateGuest(ctx, core.Guest{
			WeddingID: w.ID, FirstName: name, Group: "Famiglia", RSVPStatus: core.RSVPConfirmed,
		}); err != nil {
			t.Fatalf("create guest: %v", err)
		}
	}

	budget := services.NewBudgetService(repo, nil, metrics.New())
	item, err := budget.CreateItem(ctx, core.BudgetItem{
		WeddingID: w.ID, Category: "Fotografo", EstimatedCost: &core.Money{Cents: 100_000},
	})
	if err != nil {
		t.Fatalf("create budget item: %v", err)
	}
	return seeded{db: db, wedding: w, item: item}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AMQP_URL", "")
	var out, errOut bytes.Buffer
	cmd, release := newRootCmd()
	defer func() {
		if err := release(); err != nil {
			t.Errorf("release: %v", err)
		}
	}()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateReportsSchemaVersion(t *testing.T) {
	s := seed(t)
	out, err := run(t, "migrate", "--db", s.db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.HasPrefix(out, "schema version ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSeatingAssignDryRunDoesNotSave(t *testing.T) {
	s := seed(t)
	id := itoa(s.wedding.ID)

	out, err := run(t, "seating", "assign", "--db", s.db, "--wedding", id, "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "2 guests would be assigned, 0 without a seat") {
		t.Errorf("unexpected dry run output:\n%s", out)
	}

	// Nothing was saved, so the real run still has both guests to seat.
	out, err = run(t, "seating", "assign", "--db", s.db, "--wedding", id, "--strategy", "by_side")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !strings.Contains(out, "2 guests assigned, 0 without a seat") {
		t.Errorf("unexpected assign output:\n%s", out)
	}
	if !strings.Contains(out, "Sposi") {
		t.Errorf("expected table row in output:\n%s", out)
	}

	out, err = run(t, "seating", "clear", "--db", s.db, "--wedding", id)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if strings.TrimSpace(out) != "2 guests unseated" {
		t.Errorf("unexpected clear output %q", out)
	}
}

func TestSeatingAssignRejectsUnknownStrategy(t *testing.T) {
	s := seed(t)
	_, err := run(t, "seating", "assign", "--db", s.db, "--wedding", itoa(s.wedding.ID), "--strategy", "by_age")
	if err == nil || !strings.Contains(err.Error(), "by_age") {
		t.Errorf("expected unknown strategy error, got %v", err)
	}
}

func TestBudgetPayAndSummary(t *testing.T) {
	s := seed(t)

	out, err := run(t, "budget", "pay", "--db", s.db, "--item", itoa(s.item.ID), "--amount", "400", "--method", "bonifico")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if want := "Fotografo: paid €400,00, remaining €600,00, status partial"; strings.TrimSpace(out) != want {
		t.Errorf("pay output = %q, want %q", out, want)
	}

	if _, err := run(t, "budget", "pay", "--db", s.db, "--item", itoa(s.item.ID), "--amount", "0"); err == nil {
		t.Error("expected zero amount to be rejected")
	}

	out, err = run(t, "budget", "summary", "--db", s.db, "--wedding", itoa(s.wedding.ID))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"paid €400,00", "1 items: 0 paid, 1 partial, 0 pending", "Fotografo"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
