package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, "anon-key", server.Client())
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("ftp://example.com", "key", nil)
	require.Error(t, err)

	_, err = New("https://abc.example.co", "", nil)
	require.Error(t, err)

	client, err := New("https://abcdef.example.co/", "key", nil)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", client.ProjectRef())
}

func TestSignInWithPassword(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600,
			"user":{"id":"u1","email":"svc@example.com","app_metadata":{"role":"service"}}}`))
	})

	session, err := client.SignInWithPassword(context.Background(), "svc@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "u1", session.UserID())
	assert.NotZero(t, session.ExpiresAt)
	assert.WithinDuration(t, session.ObtainedAt.Add(time.Hour), session.Expiry(), 2*time.Second)
}

func TestErrorDecoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "auth service",
			status:      http.StatusUnauthorized,
			body:        `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT: token is expired"}`,
			wantStatus:  401,
			wantCode:    "bad_jwt",
			wantMessage: "invalid JWT: token is expired",
		},
		{
			name:        "data api",
			status:      http.StatusUnauthorized,
			body:        `{"code":"PGRST301","message":"JWT expired","details":null,"hint":null}`,
			wantStatus:  401,
			wantCode:    "PGRST301",
			wantMessage: "JWT expired",
		},
		{
			name:        "storage",
			status:      http.StatusBadRequest,
			body:        `{"statusCode":"403","error":"Unauthorized","message":"new row violates row-level security policy"}`,
			wantStatus:  403,
			wantCode:    "Unauthorized",
			wantMessage: "new row violates row-level security policy",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        `upstream unavailable`,
			wantStatus:  502,
			wantMessage: "upstream unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.GetUser(context.Background(), "token")
			require.Error(t, err)

			var platformErr *Error
			require.True(t, errors.As(err, &platformErr))
			assert.Equal(t, tc.wantStatus, platformErr.StatusCode())
			assert.Equal(t, tc.wantCode, platformErr.Code)
			assert.Equal(t, tc.wantMessage, platformErr.Message)
		})
	}
}

func TestUpdateUserMetadata(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body.Data["is_admin"])

		_, _ = w.Write([]byte(`{"id":"u1","user_metadata":{"is_admin":true,"role":"admin"}}`))
	})

	user, err := client.UpdateUserMetadata(context.Background(), "user-token", map[string]any{"is_admin": true, "role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, true, user.UserMetadata["is_admin"])
}

func TestStorage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/storage/v1/object/list/"):
			assert.Equal(t, "/storage/v1/object/list/thumbs", r.URL.Path)
			_, _ = w.Write([]byte(`[{"id":"o1","name":"course-1.jpg"}]`))
		case r.Method == http.MethodPost:
			assert.Equal(t, "/storage/v1/object/thumbs/courses/c1.jpg", r.URL.Path)
			assert.Equal(t, "true", r.Header.Get("x-upsert"))
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			payload, _ := io.ReadAll(r.Body)
			assert.Equal(t, "jpeg-bytes", string(payload))
			_, _ = w.Write([]byte(`{"Key":"thumbs/courses/c1.jpg"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	err := client.Upload(context.Background(), "svc-token", "thumbs", "/courses/c1.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"), true)
	require.NoError(t, err)

	objects, err := client.List(context.Background(), "svc-token", "thumbs", ListOptions{Prefix: "courses"})
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "course-1.jpg", objects[0].Name)

	assert.True(t, strings.HasSuffix(client.PublicURL("thumbs", "courses/c1.jpg"), "/storage/v1/object/public/thumbs/courses/c1.jpg"))
}

func TestCallRPC(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/get_user_permissions", r.URL.Path)
		_, _ = w.Write([]byte(`["courses:read","courses:write"]`))
	})

	var permissions []string
	err := client.CallRPC(context.Background(), "svc-token", "get_user_permissions", map[string]string{"p_user_id": "u1"}, &permissions)
	require.NoError(t, err)
	assert.Equal(t, []string{"courses:read", "courses:write"}, permissions)
}
