package http

import (
	"net/http"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/storage"
)

// taskFilter maps ?status=open|done onto a completion filter; anything else
// lists every task.
func taskFilter(status string) storage.TaskFilter {
	switch status {
	case "open", "done":
		done := status == "done"
		return storage.TaskFilter{Completed: &done}
	}
	return storage.TaskFilter{}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	status := sanitizeInput(r.URL.Query().Get("status"))

	tasks, err := s.storage.ListTasks(ctx, wedding.ID, taskFilter(status))
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	all, err := s.storage.ListTasks(ctx, wedding.ID, storage.TaskFilter{})
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	now := s.now()
	view := tasksView{
		page:       page{Title: "Cose da fare", Section: "tasks", Wedding: wedding},
		Tasks:      tasks,
		Status:     status,
		Summary:    core.SummarizeTasks(all, now),
		Priorities: taskPriorities,
		Now:        now,
	}
	if partial(r) {
		s.render(w, r, "tasks_list", view)
		return
	}
	s.render(w, r, "tasks.html", view)
}

func taskFromForm(p *RequestBodyParser) (core.Task, error) {
	t := core.Task{
		Title:       p.Get("title"),
		Description: p.Get("description"),
		Priority:    core.TaskPriority(p.Get("priority")),
	}
	if t.Priority == "" {
		t.Priority = core.PriorityMedium
	}
	due, err := p.Date("due_date")
	if err != nil {
		return t, err
	}
	t.DueDate = due
	return t, t.Validate()
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	wedding, ok := s.loadWedding(w, r)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	t, err := taskFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	t.WeddingID = wedding.ID
	if _, err := s.storage.CreateTask(r.Context(), t); err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	SuccessResponse(EventTasksChanged, wedding.ID, "Attività aggiunta").Write(w)
}

func (s *Server) taskOf(w http.ResponseWriter, r *http.Request, op string) (core.Task, bool) {
	weddingID, err := pathID(r, "weddingID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Task{}, false
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Task{}, false
	}
	t, err := s.storage.GetTask(r.Context(), taskID)
	if err != nil {
		s.writeError(w, r, err, op)
		return core.Task{}, false
	}
	if t.WeddingID != weddingID {
		NotFoundError("Attività non trovata").Write(w)
		return core.Task{}, false
	}
	return t, true
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	current, ok := s.taskOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	p := parseForm(w, r)
	if p == nil {
		return
	}
	t, err := taskFromForm(p)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	t.ID = current.ID
	if err := s.storage.UpdateTask(r.Context(), t); err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	SuccessResponse(EventTasksChanged, current.WeddingID, "Attività aggiornata").Write(w)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	current, ok := s.taskOf(w, r, log.OpUpdate)
	if !ok {
		return
	}
	t, err := s.storage.ToggleTask(r.Context(), current.ID, s.now())
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	msg := "Attività riaperta"
	if t.Completed {
		msg = "Attività completata"
	}
	NewHTMXResponse().
		TriggerChanged(EventTasksChanged, t.WeddingID).
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.taskOf(w, r, log.OpDelete)
	if !ok {
		return
	}
	if err := s.storage.DeleteTask(r.Context(), t.ID); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	SuccessResponse(EventTasksChanged, t.WeddingID, "Attività eliminata").Write(w)
}
