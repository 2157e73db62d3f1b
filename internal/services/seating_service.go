package services

import (
	"context"
	"fmt"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/storage"
)

// SeatingService manages tables and guest placement across SQLite and AMQP.
type SeatingService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
	metrics   *metrics.Metrics
}

func NewSeatingService(storage *storage.SQLiteRepository, publisher SyncPublisher, m *metrics.Metrics) *SeatingService {
	return &SeatingService{
		storage:   storage,
		publisher: publisher,
		metrics:   m,
	}
}

// PlanAssignment computes an automatic assignment without saving it.
func (s *SeatingService) PlanAssignment(ctx context.Context, weddingID int64, strategy string, seed *int64) (Assignment, error) {
	orderer, err := GetGuestOrderer(strategy, seed)
	if err != nil {
		return Assignment{}, err
	}
	return plan(ctx, s.storage.Queries, weddingID, orderer)
}

// AutoAssign seats every confirmed, unseated guest it can and saves the whole
// batch in one transaction. Guests that do not fit are reported, not an error.
func (s *SeatingService) AutoAssign(ctx context.Context, weddingID int64, strategy string, seed *int64) (Assignment, error) {
	orderer, err := GetGuestOrderer(strategy, seed)
	if err != nil {
		return Assignment{}, err
	}

	var res Assignment
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		res, err = plan(ctx, q, weddingID, orderer)
		if err != nil {
			return err
		}
		for _, a := range res.Assignments {
			tableID := a.TableID
			if err := q.SetGuestTable(ctx, a.GuestID, &tableID); err != nil {
				return fmt.Errorf("seat guest %d: %w", a.GuestID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}

	s.metrics.ObserveAssignment(strategy, len(res.Assignments), res.Unassigned)
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogSeatsAssigned(ctx, weddingID, strategy, len(res.Assignments), res.Unassigned)

	if len(res.Assignments) > 0 {
		s.seatingChanged(ctx, weddingID)
	}
	return res, nil
}

func plan(ctx context.Context, q *storage.Queries, weddingID int64, orderer GuestOrderer) (Assignment, error) {
	if _, err := q.GetWedding(ctx, weddingID); err != nil {
		return Assignment{}, err
	}
	tables, err := q.ListTables(ctx, weddingID)
	if err != nil {
		return Assignment{}, err
	}
	guests, err := q.ListSeatableGuests(ctx, weddingID)
	if err != nil {
		return Assignment{}, err
	}
	return AssignSeats(tables, guests, orderer), nil
}

// ClearAssignments unseats every guest of the wedding.
func (s *SeatingService) ClearAssignments(ctx context.Context, weddingID int64) (int64, error) {
	n, err := s.storage.ClearSeating(ctx, weddingID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.seatingChanged(ctx, weddingID)
	}
	return n, nil
}

// AssignGuest seats one guest at a table, or unseats them when tableID is nil.
func (s *SeatingService) AssignGuest(ctx context.Context, guestID int64, tableID *int64) error {
	var weddingID int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		guest, err := q.GetGuest(ctx, guestID)
		if err != nil {
			return err
		}
		weddingID = guest.WeddingID

		if tableID == nil {
			return q.SetGuestTable(ctx, guestID, nil)
		}
		if guest.TableID != nil && *guest.TableID == *tableID {
			return nil
		}

		table, err := q.GetTable(ctx, *tableID)
		if err != nil {
			return err
		}
		switch {
		case table.WeddingID != guest.WeddingID:
			return core.ErrWeddingMismatch
		case guest.RSVPStatus != core.RSVPConfirmed:
			return core.ErrGuestNotEligible
		case !table.HasRoom():
			return fmt.Errorf("%s: %w", table.Name, core.ErrTableFull)
		}
		return q.SetGuestTable(ctx, guestID, tableID)
	})
	if err != nil {
		return err
	}

	s.seatingChanged(ctx, weddingID)
	return nil
}

func (s *SeatingService) CreateTable(ctx context.Context, t core.Table) (core.Table, error) {
	if err := t.Validate(); err != nil {
		return core.Table{}, err
	}
	if _, err := s.storage.GetWedding(ctx, t.WeddingID); err != nil {
		return core.Table{}, err
	}
	return s.storage.CreateTable(ctx, t)
}

// UpdateTable rejects shrinking a table below the guests already seated at it.
func (s *SeatingService) UpdateTable(ctx context.Context, t core.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetTable(ctx, t.ID)
		if err != nil {
			return err
		}
		if t.Capacity < current.Occupancy {
			return fmt.Errorf("%d guests already seated: %w", current.Occupancy, core.ErrInvalidCapacity)
		}
		return q.UpdateTable(ctx, t)
	})
	if err != nil {
		return err
	}
	s.seatingChanged(ctx, t.WeddingID)
	return nil
}

func (s *SeatingService) DeleteTable(ctx context.Context, id int64) error {
	t, err := s.storage.GetTable(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteTable(ctx, id); err != nil {
		return err
	}
	s.seatingChanged(ctx, t.WeddingID)
	return nil
}

// Summary reports table usage for a wedding.
func (s *SeatingService) Summary(ctx context.Context, weddingID int64) (core.SeatingSummary, error) {
	tables, err := s.storage.ListTables(ctx, weddingID)
	if err != nil {
		return core.SeatingSummary{}, err
	}
	unseated, err := s.storage.ListSeatableGuests(ctx, weddingID)
	if err != nil {
		return core.SeatingSummary{}, err
	}

	sum := core.SeatingSummary{Tables: len(tables), UnseatedGuests: len(unseated)}
	for _, t := range tables {
		sum.Capacity += t.Capacity
		sum.Occupied += t.Occupancy
	}
	return sum, nil
}

func (s *SeatingService) seatingChanged(ctx context.Context, weddingID int64) {
	notify(ctx, s.publisher, "seating.assigned", func(p SyncPublisher) error {
		return p.PublishSeatingAssigned(ctx, weddingID)
	})
}
