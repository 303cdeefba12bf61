package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

type lessonCompleter interface {
	CompleteLesson(ctx context.Context, user *model.User, lessonID string) (model.LessonCompletion, error)
}

type ProgressHandler struct {
	service lessonCompleter
}

func NewProgressHandler(service lessonCompleter) *ProgressHandler {
	return &ProgressHandler{service: service}
}

func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	lessonID := chi.URLParam(r, "id")
	if lessonID == "" {
		writeError(w, apierror.BadRequest("lesson id is required", "id"))
		return
	}

	result, err := h.service.CompleteLesson(r.Context(), user, lessonID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyComplete {
		status = http.StatusOK
	}
	writeSuccess(w, status, result, nil)
}
