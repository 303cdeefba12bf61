package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.HTTPStatus
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap keeps cause reachable through errors.Is/As while presenting code and message to clients.
func Wrap(cause error, code string, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: status, cause: cause}
}

func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func NotFound(message string, details string) *APIError {
	return New("NOT_FOUND", message, details, http.StatusNotFound)
}

func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New("FORBIDDEN", message, "", http.StatusForbidden)
}

func TokenExpired(message string) *APIError {
	return New("TOKEN_EXPIRED", message, "", http.StatusUnauthorized)
}

func PayloadTooLarge(message string) *APIError {
	return New("PAYLOAD_TOO_LARGE", message, "", http.StatusRequestEntityTooLarge)
}

func UnsupportedMediaType(message string, details string) *APIError {
	return New("UNSUPPORTED_TYPE", message, details, http.StatusUnsupportedMediaType)
}

func ServiceUnavailable(message string) *APIError {
	return New("SERVICE_UNAVAILABLE", message, "", http.StatusServiceUnavailable)
}
