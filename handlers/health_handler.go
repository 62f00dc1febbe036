package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler reports healthy when ping succeeds. A nil ping always
// reports healthy.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Healthz godoc
// @Summary Liveness and storage check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			logRequestError(r, "health check failed", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	if err := writeJSON(w, code, jsonResponse{"status": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
