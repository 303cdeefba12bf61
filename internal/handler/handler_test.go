package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
)

var learner = &model.User{ID: "user-1", Email: "learner@example.com", AccessToken: "user-token"}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

// serve routes a single request through chi so URL params resolve, with the
// given user attached as if RequireAuth had run.
func serve(t *testing.T, method, pattern, target string, body io.Reader, user *model.User, h http.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
