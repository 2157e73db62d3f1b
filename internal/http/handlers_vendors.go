package http

import (
	"net/http"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/storage"
)

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := storage.VendorFilter{
		Status:   core.VendorStatus(sanitizeInput(q.Get("status"))),
		Category: sanitizeInput(q.Get("category")),
	}
	vendors, err := s.storage.ListVendors(r.Context(), wedding.ID, filter)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	view := vendorsView{
		page:     page{Title: "Fornitori", Section: "vendors", Wedding: wedding},
		Vendors:  vendors,
		Filter:   filter,
		Statuses: vendorStatuses,
	}
	if partial(r) {
		s.render(w, r, "vendors_list", view)
		return
	}
	s.render(w, r, "vendors.html", view)
}

func vendorFromForm(p *RequestBodyParser) core.Vendor {
	v := core.Vendor{
		Name:        p.Get("name"),
		Category:    p.Get("category"),
		ContactName: p.Get("contact_name"),
		Email:       p.Get("email"),
		Phone:       p.Get("phone"),
		Status:      core.VendorStatus(p.Get("status")),
		Notes:       p.Get("notes"),
	}
	if v.Status == "" {
		v.Status = core.VendorResearching
	}
	return v
}

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	v := vendorFromForm(p)
	v.WeddingID = wedding.ID
	if err := v.Validate(); err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	if _, err := s.storage.CreateVendor(r.Context(), v); err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	SuccessResponse(EventVendorsChanged, wedding.ID, "Fornitore aggiunto").Write(w)
}

func (s *Server) vendorOf(w http.ResponseWriter, r *http.Request, op string) (core.Vendor, bool) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Vendor{}, false
	}
	vendorID, err := pathID(r, "vendorID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Vendor{}, false
	}
	v, err := s.storage.GetVendor(r.Context(), vendorID)
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Vendor{}, false
	}
	if v.WeddingID != weddingID {
		NotFoundError("Fornitore non trovato").Write(w)
		return core.Vendor{}, false
	}
	return v, true
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	current, ok := s.vendorOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	v := vendorFromForm(p)
	v.ID = current.ID
	v.WeddingID = current.WeddingID
	if err := v.Validate(); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	if err := s.storage.UpdateVendor(r.Context(), v); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventVendorsChanged, v.WeddingID, "Fornitore aggiornato").Write(w)
}

// handleDeleteVendor detaches the vendor's budget items before removing it;
// the items stay.
func (s *Server) handleDeleteVendor(w http.ResponseWriter, r *http.Request) {
	v, ok := s.vendorOf(w, r, log.OpDelete)
	if !ok {
		return
	}
	if err := s.storage.DeleteVendor(r.Context(), v.ID); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	SuccessResponse(EventVendorsChanged, v.WeddingID, "Fornitore eliminato").
		TriggerChanged(EventBudgetChanged, v.WeddingID).
		Write(w)
}
