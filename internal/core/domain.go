package core

import (
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"
)

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPDeclined  RSVPStatus = "declined"
	RSVPMaybe     RSVPStatus = "maybe"
)

const (
	SideBride Side = "bride"
	SideGroom Side = "groom"
	SideBoth  Side = "both"
)

const (
	VendorResearching VendorStatus = "researching"
	VendorContacted   VendorStatus = "contacted"
	VendorBooked      VendorStatus = "booked"
	VendorDeclined    VendorStatus = "declined"
)

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type (
	RSVPStatus   string
	Side         string
	VendorStatus string
	TaskPriority string

	Money struct {
		Cents int64
	}

	// Wedding is the root aggregate owning all planning data for one event.
	Wedding struct {
		ID          int64
		OwnerEmail  string
		PartnerOne  string
		PartnerTwo  string
		Date        time.Time
		Venue       string
		TotalBudget Money
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Guest struct {
		ID         int64
		WeddingID  int64
		FirstName  string
		LastName   string
		Email      string
		Phone      string
		Group      string
		Side       Side
		RSVPStatus RSVPStatus
		PlusOne    bool
		Dietary    string
		TableID    *int64
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Table is a seating table. Occupancy is derived from the guests seated at it.
	Table struct {
		ID        int64
		WeddingID int64
		Name      string
		Capacity  int
		Occupancy int
		Order     int
		Notes     string
	}

	Vendor struct {
		ID          int64
		WeddingID   int64
		Name        string
		Category    string
		ContactName string
		Email       string
		Phone       string
		Status      VendorStatus
		Notes       string
	}

	Task struct {
		ID          int64
		WeddingID   int64
		Title       string
		Description string
		DueDate     *time.Time
		Priority    TaskPriority
		Completed   bool
		CompletedAt *time.Time
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCapacity    = errors.New("capacity must be positive")
	ErrTableFull          = errors.New("table is full")
	ErrGuestNotEligible   = errors.New("only confirmed guests can be seated")
	ErrEmptyName          = errors.New("name is required")
	ErrEmptyTitle         = errors.New("title is required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidRSVP        = errors.New("invalid rsvp status")
	ErrInvalidSide        = errors.New("invalid side")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrWeddingMismatch    = errors.New("records belong to different weddings")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrTitleTooLong       = errors.New("title too long (max 200 characters)")
	ErrCapacityTooLarge   = errors.New("capacity too large (max 1000)")
)

func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPPending, RSVPConfirmed, RSVPDeclined, RSVPMaybe:
		return true
	}
	return false
}

// IsValid accepts the empty side, which means "unknown".
func (s Side) IsValid() bool {
	switch s {
	case "", SideBride, SideGroom, SideBoth:
		return true
	}
	return false
}

func (s VendorStatus) IsValid() bool {
	switch s {
	case VendorResearching, VendorContacted, VendorBooked, VendorDeclined:
		return true
	}
	return false
}

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CheckedAdd is Add for non-negative amounts, failing with ErrInvalidAmount
// when the sum does not fit in int64.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if m.Cents < 0 || o.Cents < 0 || m.Cents > math.MaxInt64-o.Cents {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// DisplayName returns the couple's names joined for headings.
func (w Wedding) DisplayName() string {
	switch {
	case w.PartnerOne != "" && w.PartnerTwo != "":
		return w.PartnerOne + " & " + w.PartnerTwo
	case w.PartnerOne != "":
		return w.PartnerOne
	default:
		return w.PartnerTwo
	}
}

func (w Wedding) Validate() error {
	if strings.TrimSpace(w.PartnerOne) == "" && strings.TrimSpace(w.PartnerTwo) == "" {
		return ErrEmptyName
	}
	if err := validateEmail(w.OwnerEmail, true); err != nil {
		return err
	}
	if w.TotalBudget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// FullName returns first and last name separated by a space.
func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// Seated reports whether the guest has a table.
func (g Guest) Seated() bool {
	return g.TableID != nil
}

func (g Guest) Validate() error {
	if strings.TrimSpace(g.FirstName) == "" {
		return ErrEmptyName
	}
	if len(g.FirstName) > 100 || len(g.LastName) > 100 {
		return ErrNameTooLong
	}
	if err := validateEmail(g.Email, false); err != nil {
		return err
	}
	if !g.RSVPStatus.IsValid() {
		return ErrInvalidRSVP
	}
	if !g.Side.IsValid() {
		return ErrInvalidSide
	}
	return nil
}

// HasRoom reports whether one more guest fits at the table.
func (t Table) HasRoom() bool {
	return t.Occupancy < t.Capacity
}

// SeatsLeft returns the number of free seats, never negative.
func (t Table) SeatsLeft() int {
	if t.Occupancy >= t.Capacity {
		return 0
	}
	return t.Capacity - t.Occupancy
}

func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if t.Capacity > 1000 {
		return ErrCapacityTooLarge
	}
	return nil
}

func (v Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if err := validateEmail(v.Email, false); err != nil {
		return err
	}
	if !v.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// Overdue reports whether an open task is past its due date.
func (t Task) Overdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

func validateEmail(email string, required bool) error {
	email = strings.TrimSpace(email)
	if email == "" {
		if required {
			return ErrInvalidEmail
		}
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
