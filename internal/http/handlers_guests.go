package http

import (
	"net/http"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/storage"
)

func guestFilterFromQuery(r *http.Request) storage.GuestFilter {
	q := r.URL.Query()
	return storage.GuestFilter{
		RSVP:  core.RSVPStatus(sanitizeInput(q.Get("rsvp"))),
		Side:  core.Side(sanitizeInput(q.Get("side"))),
		Group: sanitizeInput(q.Get("group")),
		Query: sanitizeInput(q.Get("q")),
	}
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	filter := guestFilterFromQuery(r)

	guests, err := s.storage.ListGuests(ctx, wedding.ID, filter)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	tables, err := s.storage.ListTables(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	groups, err := s.storage.ListGroups(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	summary, err := s.guests.Summary(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	view := guestsView{
		page:    page{Title: "Invitati", Section: "guests", Wedding: wedding},
		Guests:  guests,
		Tables:  tables,
		Groups:  groups,
		Filter:  filter,
		Summary: summary,
		RSVPs:   rsvpStatuses,
		Sides:   sides,
	}
	if partial(r) {
		s.render(w, r, "guests_list", view)
		return
	}
	s.render(w, r, "guests.html", view)
}

func guestFromForm(p *RequestBodyParser) core.Guest {
	return core.Guest{
		FirstName:  p.Get("first_name"),
		LastName:   p.Get("last_name"),
		Email:      p.Get("email"),
		Phone:      p.Get("phone"),
		Group:      p.Get("group"),
		Side:       core.Side(p.Get("side")),
		RSVPStatus: core.RSVPStatus(p.Get("rsvp_status")),
		PlusOne:    p.Bool("plus_one"),
		Dietary:    p.Get("dietary"),
	}
}

func (s *Server) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	g := guestFromForm(p)
	g.WeddingID = weddingID

	created, err := s.guests.Create(r.Context(), g)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	s.logger.InfoContext(r.Context(), "Guest created",
		log.FieldWeddingID, weddingID,
		log.FieldGuestID, created.ID)
	SuccessResponse(EventGuestsChanged, weddingID, "Invitato aggiunto").Write(w)
}

// guestOf loads the guest in the path and checks it belongs to the wedding in
// the path. A guest of another wedding is reported as missing.
func (s *Server) guestOf(w http.ResponseWriter, r *http.Request, op string) (core.Guest, bool) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Guest{}, false
	}
	guestID, err := pathID(r, "guestID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Guest{}, false
	}
	g, err := s.storage.GetGuest(r.Context(), guestID)
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Guest{}, false
	}
	if g.WeddingID != weddingID {
		NotFoundError("Invitato non trovato").Write(w)
		return core.Guest{}, false
	}
	return g, true
}

func (s *Server) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	current, ok := s.guestOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	g := guestFromForm(p)
	g.ID = current.ID
	g.WeddingID = current.WeddingID

	if _, err := s.guests.Update(r.Context(), g); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventGuestsChanged, current.WeddingID, "Invitato aggiornato").
		TriggerChanged(EventSeatingChanged, current.WeddingID).
		Write(w)
}

func (s *Server) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	g, ok := s.guestOf(w, r, log.OpDelete)
	if !ok {
		return
	}
	if err := s.guests.Delete(r.Context(), g.ID); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	resp := SuccessResponse(EventGuestsChanged, g.WeddingID, "Invitato eliminato")
	if g.Seated() {
		resp.TriggerChanged(EventSeatingChanged, g.WeddingID)
	}
	resp.Write(w)
}

func (s *Server) handleSetRSVP(w http.ResponseWriter, r *http.Request) {
	g, ok := s.guestOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}

	updated, err := s.guests.SetRSVP(r.Context(), g.ID, core.RSVPStatus(p.Get("rsvp_status")))
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	resp := SuccessResponse(EventGuestsChanged, g.WeddingID, "Risposta aggiornata")
	if g.Seated() && !updated.Seated() {
		resp.TriggerChanged(EventSeatingChanged, g.WeddingID).
			TriggerWarningNotification(updated.FullName() + " non è più assegnato a un tavolo")
	}
	resp.Write(w)
}

// handleSeatGuest moves a guest to the table in the form, or off any table
// when table_id is blank.
func (s *Server) handleSeatGuest(w http.ResponseWriter, r *http.Request) {
	g, ok := s.guestOf(w, r, log.OpAssign)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	tableID, err := p.OptionalID("table_id")
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}

	if err := s.seating.AssignGuest(r.Context(), g.ID, tableID); err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	msg := "Invitato assegnato al tavolo"
	if tableID == nil {
		msg = "Invitato rimosso dal tavolo"
	}
	SuccessResponse(EventSeatingChanged, g.WeddingID, msg).
		TriggerChanged(EventGuestsChanged, g.WeddingID).
		Write(w)
}
