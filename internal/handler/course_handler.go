package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
	"go-lms/internal/service"
	"go-lms/pkg/apierror"
)

type courseService interface {
	FetchCourses(ctx context.Context, user *model.User, req service.CourseListRequest) (model.CoursePage, error)
	GetCourse(ctx context.Context, user *model.User, courseID string) (model.CourseDetail, error)
}

type CourseHandler struct {
	service courseService
}

func NewCourseHandler(service courseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List serves GET /courses?q=&difficulty=&category=&status=&sort=&page=&page_size=.
// Multi-valued filters accept repeated parameters or comma-separated values.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	query := r.URL.Query()
	page, err := optionalInt(query, "page")
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := optionalInt(query, "page_size")
	if err != nil {
		writeError(w, err)
		return
	}

	req := service.CourseListRequest{
		Filters: model.CourseFilters{
			Search:     strings.TrimSpace(query.Get("q")),
			Difficulty: multiValue(query, "difficulty"),
			Category:   multiValue(query, "category"),
			Status:     multiValue(query, "status"),
		},
		SortBy:     strings.TrimSpace(query.Get("sort")),
		Pagination: model.PageRequest{Page: page, PageSize: pageSize},
	}

	result, err := h.service.FetchCourses(r.Context(), user, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result.Data, model.NewMeta(result.Pagination))
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	courseID := chi.URLParam(r, "id")
	if courseID == "" {
		writeError(w, apierror.BadRequest("course id is required", "id"))
		return
	}

	detail, err := h.service.GetCourse(r.Context(), user, courseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, detail, nil)
}

func multiValue(query url.Values, key string) []string {
	var out []string
	for _, raw := range query[key] {
		out = append(out, strings.Split(raw, ",")...)
	}
	out = lo.Compact(lo.Map(out, func(v string, _ int) string { return strings.TrimSpace(v) }))
	if len(out) == 0 {
		return nil
	}
	return out
}

func optionalInt(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apierror.BadRequest(key+" must be a non-negative integer", key)
	}
	return v, nil
}
