package http

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/storage"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	weddings, err := s.storage.ListWeddings(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	view := indexView{page: page{Title: "I vostri matrimoni"}, Weddings: weddings}
	if partial(r) {
		s.render(w, r, "weddings_list", view)
		return
	}
	s.render(w, r, "index.html", view)
}

// weddingFromForm reads the editable wedding fields. A blank budget is zero.
func weddingFromForm(p *RequestBodyParser) (core.Wedding, error) {
	w := core.Wedding{
		OwnerEmail: p.Get("owner_email"),
		PartnerOne: p.Get("partner_one"),
		PartnerTwo: p.Get("partner_two"),
		Venue:      p.Get("venue"),
	}
	date, err := p.Date("date")
	if err != nil {
		return w, err
	}
	if date != nil {
		w.Date = *date
	}
	budget, err := p.Money("total_budget")
	if err != nil {
		return w, err
	}
	if budget != nil {
		w.TotalBudget = *budget
	}
	return w, nil
}

func (s *Server) handleCreateWedding(w http.ResponseWriter, r *http.Request) {
	p := parseForm(w, r)
	if p == nil {
		return
	}
	wedding, err := weddingFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	if err := wedding.Validate(); err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	created, err := s.storage.CreateWedding(r.Context(), wedding)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	s.logger.InfoContext(r.Context(), "Wedding created",
		log.FieldWeddingID, created.ID,
		log.FieldOperation, log.OpCreate)

	SuccessResponse(EventWeddingsChanged, created.ID, "Matrimonio creato").
		Redirect("/weddings/" + strconv.FormatInt(created.ID, 10)).
		Write(w)
}

func (s *Server) handleUpdateWedding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	wedding, err := weddingFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	wedding.ID = id
	if err := wedding.Validate(); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	if err := s.storage.UpdateWedding(r.Context(), wedding); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventWeddingsChanged, id, "Dati del matrimonio aggiornati").Write(w)
}

func (s *Server) handleDeleteWedding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.storage.DeleteWedding(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	s.logger.InfoContext(r.Context(), "Wedding deleted",
		log.FieldWeddingID, id,
		log.FieldOperation, log.OpDelete)
	SuccessResponse(EventWeddingsChanged, id, "Matrimonio eliminato").Redirect("/").Write(w)
}

// loadWedding resolves the path wedding or writes the error response.
func (s *Server) loadWedding(w http.ResponseWriter, r *http.Request) (core.Wedding, bool) {
	id, err := pathID(r, "weddingID")
	if err == nil {
		var wedding core.Wedding
		if wedding, err = s.storage.GetWedding(r.Context(), id); err == nil {
			return wedding, true
		}
	}
	s.writeError(w, r, err, log.OpRead)
	return core.Wedding{}, false
}

func (s *Server) handleWeddingPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	d, err := s.dashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, "wedding.html", dashboardView{
		page:      page{Title: d.Wedding.DisplayName(), Section: "dashboard", Wedding: d.Wedding},
		Dashboard: d,
	})
}

// handleDashboard renders the summary partial the wedding page polls.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	d, err := s.dashboard(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, "dashboard_partial", dashboardView{
		page:      page{Wedding: d.Wedding},
		Dashboard: d,
	})
}

// dashboard aggregates the per-section summaries concurrently and caches the
// result until the next write to the wedding or the TTL.
func (s *Server) dashboard(ctx context.Context, weddingID int64) (core.Dashboard, error) {
	if d, ok := s.dashboards.Get(weddingID); ok {
		s.logger.DebugContext(ctx, "Dashboard cache hit", log.FieldWeddingID, weddingID)
		return d, nil
	}

	var d core.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Wedding, err = s.storage.GetWedding(gctx, weddingID)
		return err
	})
	g.Go(func() (err error) {
		d.Guests, err = s.guests.Summary(gctx, weddingID)
		return err
	})
	g.Go(func() (err error) {
		d.Seating, err = s.seating.Summary(gctx, weddingID)
		return err
	})
	g.Go(func() (err error) {
		d.Budget, err = s.budget.Summary(gctx, weddingID)
		return err
	})
	g.Go(func() error {
		tasks, err := s.storage.ListTasks(gctx, weddingID, storage.TaskFilter{})
		d.Tasks = core.SummarizeTasks(tasks, s.now())
		return err
	})
	g.Go(func() (err error) {
		d.Vendors, err = s.storage.CountVendors(gctx, weddingID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	s.dashboards.Set(weddingID, d)
	return d, nil
}
