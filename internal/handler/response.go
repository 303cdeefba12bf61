package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go-lms/internal/autherr"
	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Success(data, meta))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.Is(err, autherr.ErrSignedOut) {
		status = http.StatusUnauthorized
		body.Code = "SESSION_EXPIRED"
		body.Message = "Session expired, sign in again"
	} else if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrUnauthenticated) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrAdminRequired) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Admin access required"
	} else if errors.Is(err, model.ErrCourseNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Course not found"
	} else if errors.Is(err, model.ErrModuleNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Module not found"
	} else if errors.Is(err, model.ErrLessonNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Lesson not found"
	} else if errors.Is(err, model.ErrProfileNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Profile not found"
	} else if errors.Is(err, model.ErrAchievementNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Achievement not found"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrValidation) {
		// The upstream returned rows that do not match the expected shape.
		status = http.StatusBadGateway
		body.Code = "UPSTREAM_INVALID"
		body.Message = "Upstream returned invalid data"
		slog.Error("upstream validation failed", "error", err.Error())
	} else if errors.Is(err, model.ErrSessionUnavailable) {
		status = http.StatusServiceUnavailable
		body.Code = "SERVICE_UNAVAILABLE"
		body.Message = "Service session unavailable"
	} else if upstream, ok := upstreamStatus(err); ok && upstream >= 400 && upstream < 500 {
		status = upstream
		body.Code = "UPSTREAM_REJECTED"
		body.Message = "Request rejected by the platform"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

type statusCoder interface {
	StatusCode() int
}

func upstreamStatus(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

const maxJSONBody = 1 << 20

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}
