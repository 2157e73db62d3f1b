package services

import (
	"context"
	"strings"

	"nozze/internal/core"
	"nozze/internal/storage"
)

// GuestService manages the guest list. Changes that move a seated guest off
// their table announce a seating change.
type GuestService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
}

func NewGuestService(storage *storage.SQLiteRepository, publisher SyncPublisher) *GuestService {
	return &GuestService{storage: storage, publisher: publisher}
}

func normalizeGuest(g *core.Guest) {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.TrimSpace(g.Email)
	g.Group = strings.TrimSpace(g.Group)
	if g.RSVPStatus == "" {
		g.RSVPStatus = core.RSVPPending
	}
}

// Create adds an unseated guest.
func (s *GuestService) Create(ctx context.Context, g core.Guest) (core.Guest, error) {
	normalizeGuest(&g)
	g.TableID = nil
	if err := g.Validate(); err != nil {
		return core.Guest{}, err
	}
	if _, err := s.storage.GetWedding(ctx, g.WeddingID); err != nil {
		return core.Guest{}, err
	}
	return s.storage.CreateGuest(ctx, g)
}

// Update stores the guest's details. The seat is kept unless the RSVP is no
// longer confirmed.
func (s *GuestService) Update(ctx context.Context, g core.Guest) (core.Guest, error) {
	normalizeGuest(&g)
	if err := g.Validate(); err != nil {
		return core.Guest{}, err
	}

	var before, after core.Guest
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		if before, err = q.GetGuest(ctx, g.ID); err != nil {
			return err
		}
		if err := q.UpdateGuest(ctx, g); err != nil {
			return err
		}
		if err := q.SetGuestRSVP(ctx, g.ID, g.RSVPStatus); err != nil {
			return err
		}
		after, err = q.GetGuest(ctx, g.ID)
		return err
	})
	if err != nil {
		return core.Guest{}, err
	}

	if before.Seated() {
		s.seatingChanged(ctx, after.WeddingID)
	}
	return after, nil
}

// SetRSVP changes only the RSVP status.
func (s *GuestService) SetRSVP(ctx context.Context, guestID int64, status core.RSVPStatus) (core.Guest, error) {
	if !status.IsValid() {
		return core.Guest{}, core.ErrInvalidRSVP
	}
	before, err := s.storage.GetGuest(ctx, guestID)
	if err != nil {
		return core.Guest{}, err
	}
	if err := s.storage.SetGuestRSVP(ctx, guestID, status); err != nil {
		return core.Guest{}, err
	}
	after, err := s.storage.GetGuest(ctx, guestID)
	if err != nil {
		return core.Guest{}, err
	}
	if before.Seated() && !after.Seated() {
		s.seatingChanged(ctx, after.WeddingID)
	}
	return after, nil
}

func (s *GuestService) Delete(ctx context.Context, guestID int64) error {
	g, err := s.storage.GetGuest(ctx, guestID)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteGuest(ctx, guestID); err != nil {
		return err
	}
	if g.Seated() {
		s.seatingChanged(ctx, g.WeddingID)
	}
	return nil
}

// Summary counts the guests of a wedding by RSVP status.
func (s *GuestService) Summary(ctx context.Context, weddingID int64) (core.GuestSummary, error) {
	guests, err := s.storage.ListGuests(ctx, weddingID, storage.GuestFilter{})
	if err != nil {
		return core.GuestSummary{}, err
	}
	return core.SummarizeGuests(guests), nil
}

func (s *GuestService) seatingChanged(ctx context.Context, weddingID int64) {
	notify(ctx, s.publisher, "seating.assigned", func(p SyncPublisher) error {
		return p.PublishSeatingAssigned(ctx, weddingID)
	})
}
