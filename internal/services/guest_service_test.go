package services

import (
	"context"
	"errors"
	"testing"

	"nozze/internal/core"
)

func TestGuestService_CreateNormalizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewGuestService(f.repo, f.pub)

	g, err := svc.Create(ctx, core.Guest{WeddingID: f.wedding.ID, FirstName: "  Gina ", Group: " Zii "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.FirstName != "Gina" || g.Group != "Zii" || g.RSVPStatus != core.RSVPPending {
		t.Errorf("guest not normalized: %+v", g)
	}

	_, err = svc.Create(ctx, core.Guest{WeddingID: f.wedding.ID, FirstName: " "})
	if !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name: err = %v, want ErrEmptyName", err)
	}
	_, err = svc.Create(ctx, core.Guest{WeddingID: 9999, FirstName: "Orfano"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing wedding: err = %v, want ErrNotFound", err)
	}
}

func TestGuestService_LosingConfirmationFreesSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewGuestService(f.repo, f.pub)

	tbl := f.table(t, "Uno", 2, 1)
	g := f.guest(t, "Pia", "", core.RSVPConfirmed)
	if err := f.seating.AssignGuest(ctx, g.ID, &tbl.ID); err != nil {
		t.Fatalf("AssignGuest: %v", err)
	}
	before := f.pub.count()

	got, err := svc.SetRSVP(ctx, g.ID, core.RSVPMaybe)
	if err != nil {
		t.Fatalf("SetRSVP: %v", err)
	}
	if got.Seated() {
		t.Error("guest kept a seat after leaving confirmed")
	}
	if f.pub.count() != before+1 || f.pub.last().kind != "seating.assigned" {
		t.Errorf("expected a seating message, got %+v", f.pub.last())
	}

	if _, err := svc.SetRSVP(ctx, g.ID, "forse"); !errors.Is(err, core.ErrInvalidRSVP) {
		t.Errorf("bad status: err = %v", err)
	}
}

func TestGuestService_UpdateKeepsSeatWhenConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewGuestService(f.repo, f.pub)

	tbl := f.table(t, "Uno", 2, 1)
	g := f.guest(t, "Pia", "", core.RSVPConfirmed)
	if err := f.seating.AssignGuest(ctx, g.ID, &tbl.ID); err != nil {
		t.Fatalf("AssignGuest: %v", err)
	}

	g.LastName = "Rossi"
	got, err := svc.Update(ctx, g)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.Seated() || got.LastName != "Rossi" {
		t.Errorf("unexpected guest after update: %+v", got)
	}

	g.RSVPStatus = core.RSVPDeclined
	got, err = svc.Update(ctx, g)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Seated() {
		t.Error("declined guest is still seated")
	}
}

func TestGuestService_DeleteAndSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewGuestService(f.repo, f.pub)

	f.guest(t, "A", "", core.RSVPConfirmed)
	f.guest(t, "B", "", core.RSVPDeclined)
	c := f.guest(t, "C", "", core.RSVPPending)

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.pub.count() != 0 {
		t.Errorf("deleting an unseated guest published %d messages", f.pub.count())
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}

	sum, err := svc.Summary(ctx, f.wedding.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := core.GuestSummary{Total: 2, Confirmed: 1, Declined: 1}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
}
