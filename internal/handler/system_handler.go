package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-user-api/pkg/apierror"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the unauthenticated greeting and health routes.
type SystemHandler struct {
	environment string
	store       pinger
}

func NewSystemHandler(environment string, store pinger) *SystemHandler {
	return &SystemHandler{environment: environment, store: store}
}

func (h *SystemHandler) Greeting(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello World! Environment: %s", h.environment),
	})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err.Error())
		writeError(w, apierror.New("UNAVAILABLE", "storage unreachable", "", http.StatusServiceUnavailable))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
