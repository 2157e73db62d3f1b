package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name      string
	Estimated Money
	Actual    Money
	Paid      Money
}

// BudgetSummary totals the budget items of one wedding.
type BudgetSummary struct {
	TotalBudget  Money
	Estimated    Money
	Actual       Money
	Committed    Money // sum of effective costs
	Paid         Money
	Outstanding  Money
	ItemCount    int
	PaidCount    int
	PartialCount int
	PendingCount int
	ByCategory   []CategoryAmount
}

// GuestSummary counts guests by RSVP status and seating.
type GuestSummary struct {
	Total     int
	Confirmed int
	Pending   int
	Declined  int
	Maybe     int
	PlusOnes  int
	Seated    int
}

// SeatingSummary describes table usage.
type SeatingSummary struct {
	Tables         int
	Capacity       int
	Occupied       int
	UnseatedGuests int
}

// TaskSummary counts tasks by completion.
type TaskSummary struct {
	Total     int
	Completed int
	Overdue   int
}

// Dashboard is the aggregate shown on a wedding's landing page.
type Dashboard struct {
	Wedding Wedding
	Guests  GuestSummary
	Seating SeatingSummary
	Budget  BudgetSummary
	Tasks   TaskSummary
	Vendors int
}

// SummarizeBudget folds budget items into totals. Category order follows
// first appearance in items.
func SummarizeBudget(total Money, items []BudgetItem) BudgetSummary {
	s := BudgetSummary{TotalBudget: total, ItemCount: len(items)}
	idx := map[string]int{}
	for _, it := range items {
		if it.EstimatedCost != nil {
			s.Estimated = s.Estimated.Add(*it.EstimatedCost)
		}
		if it.ActualCost != nil {
			s.Actual = s.Actual.Add(*it.ActualCost)
		}
		s.Committed = s.Committed.Add(it.EffectiveCost())
		s.Paid = s.Paid.Add(it.PaidAmount)
		s.Outstanding = s.Outstanding.Add(it.Remaining())
		switch it.Status {
		case PaymentPaid:
			s.PaidCount++
		case PaymentPartial:
			s.PartialCount++
		default:
			s.PendingCount++
		}

		i, ok := idx[it.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[it.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: it.Category})
		}
		ca := &s.ByCategory[i]
		if it.EstimatedCost != nil {
			ca.Estimated = ca.Estimated.Add(*it.EstimatedCost)
		}
		if it.ActualCost != nil {
			ca.Actual = ca.Actual.Add(*it.ActualCost)
		}
		ca.Paid = ca.Paid.Add(it.PaidAmount)
	}
	return s
}

// SummarizeGuests counts guests by status.
func SummarizeGuests(guests []Guest) GuestSummary {
	s := GuestSummary{Total: len(guests)}
	for _, g := range guests {
		switch g.RSVPStatus {
		case RSVPConfirmed:
			s.Confirmed++
		case RSVPDeclined:
			s.Declined++
		case RSVPMaybe:
			s.Maybe++
		default:
			s.Pending++
		}
		if g.PlusOne {
			s.PlusOnes++
		}
		if g.Seated() {
			s.Seated++
		}
	}
	return s
}

// SummarizeTasks counts completed and overdue tasks as of now.
func SummarizeTasks(tasks []Task, now time.Time) TaskSummary {
	s := TaskSummary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
	}
	return s
}
