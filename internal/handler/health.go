package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/capitalize-ai/a2ui-playground/internal/debugbus"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Backend() string
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store Pinger
	hub   *debugbus.Hub
}

// NewHealthHandler creates a new health handler. hub may be nil.
func NewHealthHandler(store Pinger, hub *debugbus.Hub) *HealthHandler {
	return &HealthHandler{
		store: store,
		hub:   hub,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "no event store",
		})
		return
	}
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not ready",
			"backend": h.store.Backend(),
			"reason":  err.Error(),
		})
		return
	}

	resp := map[string]any{
		"status":  "ready",
		"backend": h.store.Backend(),
	}
	if h.hub != nil {
		resp["observers"] = h.hub.Subscribers()
	}
	writeJSON(w, http.StatusOK, resp)
}
