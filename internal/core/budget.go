package core

import (
	"strings"
	"time"
)

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

type (
	PaymentStatus string

	// BudgetItem is a single tracked expense line. Estimated and actual cost are
	// optional; nil means "not recorded", which is different from zero.
	BudgetItem struct {
		ID            int64
		WeddingID     int64
		VendorID      *int64
		Category      string
		Description   string
		EstimatedCost *Money
		ActualCost    *Money
		PaidAmount    Money
		Status        PaymentStatus
		IsPaid        bool
		PaidDate      *time.Time
		DueDate       *time.Time
		Notes         string
		Version       int64
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Payment is one recorded installment against a budget item.
	Payment struct {
		ID           int64
		BudgetItemID int64
		Amount       Money
		PaidAt       time.Time
		Method       string
		Note         string
	}
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

func (b BudgetItem) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyName
	}
	if len(b.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if b.EstimatedCost != nil && b.EstimatedCost.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.ActualCost != nil && b.ActualCost.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.PaidAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// EffectiveCost returns the cost basis used for completion checks.
func (b BudgetItem) EffectiveCost() Money {
	return EffectiveCost(b.ActualCost, b.EstimatedCost)
}

// Remaining returns what is still owed, never negative.
func (b BudgetItem) Remaining() Money {
	left := b.EffectiveCost().Cents - b.PaidAmount.Cents
	if left < 0 {
		left = 0
	}
	return Money{Cents: left}
}

// Overdue reports whether an unpaid item is past its due date.
func (b BudgetItem) Overdue(now time.Time) bool {
	return !b.IsPaid && b.DueDate != nil && b.DueDate.Before(now)
}
