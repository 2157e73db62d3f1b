package http

import (
	"fmt"
	"net/http"
	"strconv"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/services"
)

func (s *Server) handleSeating(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	tables, err := s.storage.ListTables(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	seated, err := s.storage.ListSeatedGuests(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	unseated, err := s.storage.ListSeatableGuests(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	summary, err := s.seating.Summary(ctx, wedding.ID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	byTable := make(map[int64][]core.Guest, len(tables))
	for _, g := range seated {
		byTable[*g.TableID] = append(byTable[*g.TableID], g)
	}
	views := make([]tableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, tableView{Table: t, Guests: byTable[t.ID]})
	}

	view := seatingView{
		page:       page{Title: "Tavoli", Section: "seating", Wedding: wedding},
		Tables:     views,
		Unseated:   unseated,
		Summary:    summary,
		Strategies: services.Strategies(),
	}
	if partial(r) {
		s.render(w, r, "seating_board", view)
		return
	}
	s.render(w, r, "seating.html", view)
}

func tableFromForm(p *RequestBodyParser) (core.Table, error) {
	capacity, err := p.Int("capacity", 0)
	if err != nil {
		return core.Table{}, err
	}
	order, err := p.Int("order", 0)
	if err != nil {
		return core.Table{}, err
	}
	return core.Table{
		Name:     p.Get("name"),
		Capacity: capacity,
		Order:    order,
		Notes:    p.Get("notes"),
	}, nil
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	t, err := tableFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	t.WeddingID = weddingID

	created, err := s.seating.CreateTable(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	s.logger.InfoContext(r.Context(), "Table created",
		log.FieldWeddingID, weddingID,
		log.FieldTableID, created.ID)
	SuccessResponse(EventSeatingChanged, weddingID, "Tavolo aggiunto").Write(w)
}

// tableOf loads the table in the path, scoped to the wedding in the path.
func (s *Server) tableOf(w http.ResponseWriter, r *http.Request, op string) (core.Table, bool) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Table{}, false
	}
	tableID, err := pathID(r, "tableID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Table{}, false
	}
	t, err := s.storage.GetTable(r.Context(), tableID)
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Table{}, false
	}
	if t.WeddingID != weddingID {
		NotFoundError("Tavolo non trovato").Write(w)
		return core.Table{}, false
	}
	return t, true
}

func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	current, ok := s.tableOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	t, err := tableFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	t.ID = current.ID
	t.WeddingID = current.WeddingID

	if err := s.seating.UpdateTable(r.Context(), t); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventSeatingChanged, t.WeddingID, "Tavolo aggiornato").Write(w)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tableOf(w, r, log.OpDelete)
	if !ok {
		return
	}
	if err := s.seating.DeleteTable(r.Context(), t.ID); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	SuccessResponse(EventSeatingChanged, t.WeddingID, "Tavolo eliminato").
		TriggerChanged(EventGuestsChanged, t.WeddingID).
		Write(w)
}

// handleAutoAssign seats the unseated confirmed guests with the chosen
// strategy. A seed makes the random strategy repeatable.
func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}

	strategy := p.Get("strategy")
	if strategy == "" {
		strategy = services.StrategyByGroup
	}
	var seed *int64
	if v := p.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("seed: %w", errInvalidField), log.OpAssign)
			return
		}
		seed = &n
	}

	res, err := s.seating.AutoAssign(r.Context(), weddingID, strategy, seed)
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}

	resp := NewHTMXResponse().
		TriggerChanged(EventSeatingChanged, weddingID).
		TriggerChanged(EventGuestsChanged, weddingID)
	if res.Unassigned > 0 {
		resp.TriggerWarningNotification(fmt.Sprintf(
			"%d invitati assegnati, %d senza posto: aggiungi tavoli o posti",
			len(res.Assignments), res.Unassigned))
	} else {
		resp.TriggerSuccessNotification(fmt.Sprintf("%d invitati assegnati", len(res.Assignments)))
	}
	resp.Write(w)
}

func (s *Server) handleClearSeating(w http.ResponseWriter, r *http.Request) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	if _, err := s.storage.GetWedding(r.Context(), weddingID); err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	n, err := s.seating.ClearAssignments(r.Context(), weddingID)
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	SuccessResponse(EventSeatingChanged, weddingID, fmt.Sprintf("%d invitati rimossi dai tavoli", n)).
		TriggerChanged(EventGuestsChanged, weddingID).
		Write(w)
}
