package httpapi

import (
	"errors"
	"net/http"

	"github.com/rickgao/peerlink/internal/session"
	"github.com/rickgao/peerlink/internal/store"
)

// handleWebsocket upgrades the request and binds the socket to its task
// for the lifetime of the connection.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	task := r.URL.Query().Get("taskId")
	if task == "" {
		writeError(w, http.StatusBadRequest, "taskId is required")
		return
	}

	if s.cfg.RequireKnownTask {
		if _, err := s.deps.Store.Task(r.Context(), task); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown task")
				return
			}
			s.logger.Error("task lookup failed", "task", task, "error", err)
			writeError(w, http.StatusInternalServerError, "task lookup failed")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	tr := session.NewWSTransport(conn, s.cfg.Session, s.logger)
	sess, err := s.deps.Binder.Bind(task, tr)
	if err != nil {
		s.logger.Error("bind failed", "task", task, "error", err)
		tr.Close()
		return
	}
	defer sess.Close()

	if err := tr.Serve(sess.HandleFrame, sess.MarkAlive); err != nil {
		s.logger.Debug("websocket read ended", "conn_id", sess.ID(), "error", err)
	}
}
