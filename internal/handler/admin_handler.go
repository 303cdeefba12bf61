package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

type adminService interface {
	CreateCourse(ctx context.Context, user *model.User, req model.CreateCourseRequest) (model.Course, error)
	UpdateCourse(ctx context.Context, user *model.User, courseID string, req model.UpdateCourseRequest) (model.Course, error)
	DeleteCourse(ctx context.Context, user *model.User, courseID string) error
	CreateModule(ctx context.Context, user *model.User, courseID string, req model.CreateModuleRequest) (model.Module, error)
	CreateLesson(ctx context.Context, user *model.User, moduleID string, req model.CreateLessonRequest) (model.Lesson, error)
	UploadThumbnail(ctx context.Context, user *model.User, courseID string, body io.Reader) (model.Course, error)
}

type AdminHandler struct {
	service       adminService
	maxUploadSize int64
}

func NewAdminHandler(service adminService, maxUploadSize int64) *AdminHandler {
	return &AdminHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.CreateCourseRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	course, err := h.service.CreateCourse(r.Context(), user, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, course, nil)
}

func (h *AdminHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.UpdateCourseRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	course, err := h.service.UpdateCourse(r.Context(), user, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, course, nil)
}

func (h *AdminHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	if err := h.service.DeleteCourse(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *AdminHandler) CreateModule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.CreateModuleRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	module, err := h.service.CreateModule(r.Context(), user, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, module, nil)
}

func (h *AdminHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.CreateLessonRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), user, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, lesson, nil)
}

// UploadThumbnail accepts a multipart form with the image in the "file" field.
func (h *AdminHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apierror.PayloadTooLarge("thumbnail exceeds the upload limit"))
			return
		}
		writeError(w, apierror.BadRequest("multipart field \"file\" is required", "file"))
		return
	}
	defer file.Close()

	course, err := h.service.UploadThumbnail(r.Context(), user, chi.URLParam(r, "id"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, course, nil)
}
