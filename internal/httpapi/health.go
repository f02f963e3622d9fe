package httpapi

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := healthResponse{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	if err := s.deps.Store.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Components["storage"] = map[string]string{
			"status": "disconnected",
			"error":  err.Error(),
		}
	} else {
		health.Components["storage"] = "connected"
	}

	if s.deps.Pairing != nil {
		stats := s.deps.Pairing.Stats()
		health.Components["pairing"] = map[string]int{
			"connections": stats.Connections,
			"waiting":     stats.Waiting,
			"tasks":       stats.Tasks,
		}
	}
	if s.deps.Binder != nil {
		health.Components["sessions"] = s.deps.Binder.Hub().Len()
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
