// Package core provides the domain types of a wedding plan.
//
// This file derives the payment state of a budget item from its cost fields
// and the cumulative amount paid so far.
package core

import "time"

// PaymentState is the set of budget item fields owned by the payment rules.
type PaymentState struct {
	PaidAmount Money
	Status     PaymentStatus
	IsPaid     bool
	PaidDate   *time.Time
}

// EffectiveCost returns the actual cost if recorded, else the estimated cost,
// else zero.
func EffectiveCost(actual, estimated *Money) Money {
	if actual != nil {
		return *actual
	}
	if estimated != nil {
		return *estimated
	}
	return Money{}
}

// ApplyPayment adds payment to the amount already paid and derives the
// resulting status. The new total is never capped at the cost, so overpayment
// is preserved. The payment amount is assumed validated (> 0) by the caller.
func ApplyPayment(currentPaid, payment Money, actual, estimated *Money, now time.Time) PaymentState {
	return derive(currentPaid.Add(payment), EffectiveCost(actual, estimated), now)
}

// DerivePaymentState recomputes the state of an item after its costs or paid
// amount changed. An item that was already paid and stays paid keeps its
// original paid date.
func DerivePaymentState(item BudgetItem, now time.Time) PaymentState {
	st := derive(item.PaidAmount, item.EffectiveCost(), now)
	if st.IsPaid && item.IsPaid && item.PaidDate != nil {
		st.PaidDate = item.PaidDate
	}
	return st
}

// Apply copies the state onto the item.
func (s PaymentState) Apply(item *BudgetItem) {
	item.PaidAmount = s.PaidAmount
	item.Status = s.Status
	item.IsPaid = s.IsPaid
	item.PaidDate = s.PaidDate
}

// derive evaluates the rules in order, first match wins. A zero cost can
// never be "paid": that would close a costless item on its first cent.
func derive(paid, cost Money, now time.Time) PaymentState {
	switch {
	case cost.Cents > 0 && paid.Cents >= cost.Cents:
		paidAt := now
		return PaymentState{PaidAmount: paid, Status: PaymentPaid, IsPaid: true, PaidDate: &paidAt}
	case paid.Cents > 0:
		return PaymentState{PaidAmount: paid, Status: PaymentPartial}
	default:
		return PaymentState{PaidAmount: paid, Status: PaymentPending}
	}
}
