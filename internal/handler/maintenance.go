package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Maintainer backs the health probe and the testing reset.
type Maintainer interface {
	Reset(ctx context.Context) error
	Healthy(ctx context.Context) error
}

// MaintenanceHandler serves /healthz and /api/testing/reset.
type MaintenanceHandler struct {
	store  Maintainer
	logger *slog.Logger
}

// NewMaintenanceHandler creates a MaintenanceHandler.
func NewMaintenanceHandler(store Maintainer, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{store: store, logger: logger}
}

// healthTimeout bounds the store ping so a wedged database fails the probe
// instead of hanging it.
const healthTimeout = 2 * time.Second

// HandleHealth reports 200 when the store answers and 503 otherwise.
//
// HTTP: GET /healthz
func (h *MaintenanceHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Healthy(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReset empties the store. Only routed when testing routes are enabled.
//
// HTTP: POST /api/testing/reset
func (h *MaintenanceHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
