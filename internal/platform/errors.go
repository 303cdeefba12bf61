package platform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error is a failure reported by one of the platform's REST surfaces.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("platform error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("platform error %d: %s", e.Status, e.Message)
}

func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// errorBody covers the auth, data and storage error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	StatusCode       json.RawMessage `json:"statusCode"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func decodeError(status int, body []byte) *Error {
	out := &Error{Status: status}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		out.Message = strings.TrimSpace(string(body))
		if out.Message == "" {
			out.Message = http.StatusText(status)
		}
		return out
	}

	out.Code = firstNonEmpty(parsed.ErrorCode, rawString(parsed.Code), parsed.Error)
	out.Message = firstNonEmpty(parsed.Message, parsed.Msg, parsed.ErrorDescription, parsed.Error, http.StatusText(status))
	out.Details = firstNonEmpty(parsed.Details, parsed.Hint)

	// Storage reports its own status inside the body.
	if embedded, err := strconv.Atoi(rawString(parsed.StatusCode)); err == nil && embedded > 0 {
		out.Status = embedded
	}

	return out
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
