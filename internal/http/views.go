package http

import (
	"errors"
	"fmt"
	"time"

	"nozze/internal/core"
	"nozze/internal/services"
	"nozze/internal/storage"
)

// page carries what the layout needs. Views embed it.
type page struct {
	Title   string
	Section string
	Wedding core.Wedding
}

type indexView struct {
	page
	Weddings []core.Wedding
}

type dashboardView struct {
	page
	Dashboard core.Dashboard
}

type guestsView struct {
	page
	Guests  []core.Guest
	Tables  []core.Table
	Groups  []string
	Filter  storage.GuestFilter
	Summary core.GuestSummary
	RSVPs   []core.RSVPStatus
	Sides   []core.Side
}

type tableView struct {
	core.Table
	Guests []core.Guest
}

type seatingView struct {
	page
	Tables     []tableView
	Unseated   []core.Guest
	Summary    core.SeatingSummary
	Strategies []string
}

type budgetView struct {
	page
	Items      []core.BudgetItem
	Vendors    []core.Vendor
	Categories []string
	Summary    core.BudgetSummary
	Filter     storage.BudgetFilter
	Statuses   []core.PaymentStatus
	Now        time.Time
}

type paymentsView struct {
	Wedding  core.Wedding
	Item     core.BudgetItem
	Payments []core.Payment
}

type vendorsView struct {
	page
	Vendors  []core.Vendor
	Filter   storage.VendorFilter
	Statuses []core.VendorStatus
}

type tasksView struct {
	page
	Tasks      []core.Task
	Status     string
	Summary    core.TaskSummary
	Priorities []core.TaskPriority
	Now        time.Time
}

var (
	rsvpStatuses    = []core.RSVPStatus{core.RSVPPending, core.RSVPConfirmed, core.RSVPMaybe, core.RSVPDeclined}
	sides           = []core.Side{core.SideBride, core.SideGroom, core.SideBoth}
	paymentStatuses = []core.PaymentStatus{core.PaymentPending, core.PaymentPartial, core.PaymentPaid}
	vendorStatuses  = []core.VendorStatus{core.VendorResearching, core.VendorContacted, core.VendorBooked, core.VendorDeclined}
	taskPriorities  = []core.TaskPriority{core.PriorityLow, core.PriorityMedium, core.PriorityHigh}
)

var labels = map[string]string{
	string(core.RSVPPending):       "In attesa",
	string(core.RSVPConfirmed):     "Confermato",
	string(core.RSVPMaybe):         "Forse",
	string(core.RSVPDeclined):      "Declinato",
	string(core.SideBride):         "Sposa",
	string(core.SideGroom):         "Sposo",
	string(core.SideBoth):          "Entrambi",
	string(core.PaymentPartial):    "Acconto",
	string(core.PaymentPaid):       "Saldato",
	string(core.VendorResearching): "Da valutare",
	string(core.VendorContacted):   "Contattato",
	string(core.VendorBooked):      "Prenotato",
	string(core.PriorityLow):       "Bassa",
	string(core.PriorityMedium):    "Media",
	string(core.PriorityHigh):      "Alta",
	services.StrategyByGroup:       "Per gruppo",
	services.StrategyBySide:        "Per lato",
	services.StrategyRandom:        "Casuale",
}

// label returns the Italian name of an enum value, or the value itself.
// Pending payments and declined vendors share their key with the RSVP
// statuses, so their labels are picked by kind.
func label[T ~string](v T) string {
	switch any(v).(type) {
	case core.PaymentStatus:
		if string(v) == string(core.PaymentPending) {
			return "Da pagare"
		}
	case core.VendorStatus:
		if string(v) == string(core.VendorDeclined) {
			return "Scartato"
		}
	}
	if l, ok := labels[string(v)]; ok {
		return l
	}
	return string(v)
}

// dict builds a map from alternating keys and values so a template can pass
// more than one value to a nested template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}
