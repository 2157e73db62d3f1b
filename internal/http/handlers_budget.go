package http

import (
	"fmt"
	"net/http"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/storage"
)

func (s *Server) handleListBudget(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()
	filter := storage.BudgetFilter{
		Status:   core.PaymentStatus(sanitizeInput(q.Get("status"))),
		Category: sanitizeInput(q.Get("category")),
	}

	items, err := s.storage.ListBudgetItems(ctx, wedding.ID, filter)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	vendors, err := s.storage.ListVendors(ctx, wedding.ID, storage.VendorFilter{})
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	categories, err := s.storage.ListCategories(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	summary, err := s.budget.Summary(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	view := budgetView{
		page:       page{Title: "Budget", Section: "budget", Wedding: wedding},
		Items:      items,
		Vendors:    vendors,
		Categories: categories,
		Summary:    summary,
		Filter:     filter,
		Statuses:   paymentStatuses,
		Now:        s.now(),
	}
	if partial(r) {
		s.render(w, r, "budget_list", view)
		return
	}
	s.render(w, r, "budget.html", view)
}

func budgetItemFromForm(p *RequestBodyParser) (core.BudgetItem, error) {
	item := core.BudgetItem{
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Notes:       p.Get("notes"),
	}
	var err error
	if item.VendorID, err = p.OptionalID("vendor_id"); err != nil {
		return item, err
	}
	if item.EstimatedCost, err = p.Money("estimated_cost"); err != nil {
		return item, err
	}
	if item.ActualCost, err = p.Money("actual_cost"); err != nil {
		return item, err
	}
	if item.DueDate, err = p.Date("due_date"); err != nil {
		return item, err
	}
	return item, nil
}

func (s *Server) handleCreateBudgetItem(w http.ResponseWriter, r *http.Request) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	item, err := budgetItemFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	paid, err := p.Money("paid_amount")
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	if paid != nil {
		item.PaidAmount = *paid
	}
	item.WeddingID = weddingID

	created, err := s.budget.CreateItem(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	s.logger.InfoContext(r.Context(), "Budget item created",
		log.FieldWeddingID, weddingID,
		log.FieldBudgetItemID, created.ID,
		log.FieldPaymentStatus, created.Status)
	SuccessResponse(EventBudgetChanged, weddingID, "Voce di spesa aggiunta").Write(w)
}

// budgetItemOf loads the item in the path, scoped to the wedding in the path.
func (s *Server) budgetItemOf(w http.ResponseWriter, r *http.Request, op string) (core.BudgetItem, bool) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.BudgetItem{}, false
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.BudgetItem{}, false
	}
	item, err := s.storage.GetBudgetItem(r.Context(), itemID)
	if err != nil {
		s.writeError(w, r, err, op)
		return core.BudgetItem{}, false
	}
	if item.WeddingID != weddingID {
		NotFoundError("Voce di spesa non trovata").Write(w)
		return core.BudgetItem{}, false
	}
	return item, true
}

func (s *Server) handleUpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	current, ok := s.budgetItemOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	item, err := budgetItemFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	item.ID = current.ID
	item.WeddingID = current.WeddingID

	if _, err := s.budget.UpdateItem(r.Context(), item); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventBudgetChanged, current.WeddingID, "Voce di spesa aggiornata").Write(w)
}

func (s *Server) handleDeleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.budgetItemOf(w, r, log.OpDelete)
	if !ok {
		return
	}
	if err := s.budget.DeleteItem(r.Context(), item.ID); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	SuccessResponse(EventBudgetChanged, item.WeddingID, "Voce di spesa eliminata").Write(w)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	item, ok := s.budgetItemOf(w, r, log.OpList)
	if !ok {
		return
	}
	wedding, err := s.storage.GetWedding(r.Context(), item.WeddingID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	payments, err := s.budget.Payments(r.Context(), item.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	s.render(w, r, "payments", paymentsView{Wedding: wedding, Item: item, Payments: payments})
}

// handleRecordPayment adds an installment. The amount must be positive; the
// item's status follows from the new paid total.
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	item, ok := s.budgetItemOf(w, r, log.OpPay)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("amount: %w", err), log.OpPay)
		return
	}

	updated, err := s.budget.RecordPayment(r.Context(), item.ID, core.Money{Cents: cents}, p.Get("method"), p.Get("note"))
	if err != nil {
		s.writeError(w, r, err, log.OpPay)
		return
	}

	resp := NewHTMXResponse().
		TriggerChanged(EventBudgetChanged, item.WeddingID).
		TriggerFormReset()
	switch updated.Status {
	case core.PaymentPaid:
		resp.TriggerSuccessNotification(fmt.Sprintf("Pagamento registrato: %s saldato", updated.Category))
	default:
		resp.TriggerSuccessNotification(fmt.Sprintf("Pagamento registrato, restano %s", updated.Remaining()))
	}
	resp.Write(w)
}
