package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-lms/pkg/apierror"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db healthChecker
}

func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		writeError(w, apierror.ServiceUnavailable("database unreachable"))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"}, nil)
}
