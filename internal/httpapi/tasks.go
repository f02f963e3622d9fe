package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, _ string) {
	tasks, err := s.deps.Store.Tasks(r.Context())
	if err != nil {
		s.storeError(w, "list tasks", err)
		return
	}
	for i := range tasks {
		tasks[i] = withResults(tasks[i])
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request, _ string) {
	t, err := s.deps.Store.Task(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.storeError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, withResults(t))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, userUUID string) {
	var req createTaskRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	t := model.Task{
		UUID:        uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Results:     []model.Result{},
	}
	if err := s.deps.Store.CreateTask(r.Context(), t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "task with this title already exists")
			return
		}
		s.storeError(w, "create task", err)
		return
	}

	s.logger.Info("task created", "uuid", t.UUID, "title", t.Title, "by", userUUID)
	writeJSON(w, http.StatusCreated, t)
}

// withResults renders missing results as [] instead of null.
func withResults(t model.Task) model.Task {
	if t.Results == nil {
		t.Results = []model.Result{}
	}
	return t
}
