package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-lms/internal/middleware"
	"go-lms/internal/model"
)

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) CreateCourse(ctx context.Context, user *model.User, req model.CreateCourseRequest) (model.Course, error) {
	args := m.Called(ctx, user, req)
	return args.Get(0).(model.Course), args.Error(1)
}

func (m *MockAdminService) UpdateCourse(ctx context.Context, user *model.User, courseID string, req model.UpdateCourseRequest) (model.Course, error) {
	args := m.Called(ctx, user, courseID, req)
	return args.Get(0).(model.Course), args.Error(1)
}

func (m *MockAdminService) DeleteCourse(ctx context.Context, user *model.User, courseID string) error {
	return m.Called(ctx, user, courseID).Error(0)
}

func (m *MockAdminService) CreateModule(ctx context.Context, user *model.User, courseID string, req model.CreateModuleRequest) (model.Module, error) {
	args := m.Called(ctx, user, courseID, req)
	return args.Get(0).(model.Module), args.Error(1)
}

func (m *MockAdminService) CreateLesson(ctx context.Context, user *model.User, moduleID string, req model.CreateLessonRequest) (model.Lesson, error) {
	args := m.Called(ctx, user, moduleID, req)
	return args.Get(0).(model.Lesson), args.Error(1)
}

func (m *MockAdminService) UploadThumbnail(ctx context.Context, user *model.User, courseID string, body io.Reader) (model.Course, error) {
	payload, _ := io.ReadAll(body)
	args := m.Called(ctx, user, courseID, string(payload))
	return args.Get(0).(model.Course), args.Error(1)
}

func TestAdminHandler_CreateCourse(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, 1<<20)

	req := model.CreateCourseRequest{Title: "Go", Difficulty: "beginner"}
	svc.On("CreateCourse", mock.Anything, learner, req).Return(model.Course{ID: "c1", Title: "Go"}, nil)

	rec, env := serve(t, http.MethodPost, "/courses", "/courses", jsonBody(t, req), learner, h.CreateCourse)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "c1", decodeData[model.Course](t, env).ID)
}

func TestAdminHandler_CreateCourseRejectsUnknownFields(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, 1<<20)

	rec, env := serve(t, http.MethodPost, "/courses", "/courses", strings.NewReader(`{"title":"Go","owner":"x"}`), learner, h.CreateCourse)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	svc.AssertNotCalled(t, "CreateCourse", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminHandler_NonAdminIsForbidden(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, 1<<20)

	svc.On("DeleteCourse", mock.Anything, learner, "c1").Return(model.ErrAdminRequired)

	rec, env := serve(t, http.MethodDelete, "/courses/{id}", "/courses/c1", nil, learner, h.DeleteCourse)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestAdminHandler_CreateModuleAndLesson(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, 1<<20)

	svc.On("CreateModule", mock.Anything, learner, "c1", model.CreateModuleRequest{Title: "Basics"}).
		Return(model.Module{ID: "m1", CourseID: "c1"}, nil)
	svc.On("CreateLesson", mock.Anything, learner, "m1", model.CreateLessonRequest{Title: "Intro", XPReward: 20}).
		Return(model.Lesson{ID: "l1", ModuleID: "m1"}, nil)

	rec, env := serve(t, http.MethodPost, "/courses/{id}/modules", "/courses/c1/modules",
		jsonBody(t, model.CreateModuleRequest{Title: "Basics"}), learner, h.CreateModule)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "m1", decodeData[model.Module](t, env).ID)

	rec, env = serve(t, http.MethodPost, "/modules/{id}/lessons", "/modules/m1/lessons",
		jsonBody(t, model.CreateLessonRequest{Title: "Intro", XPReward: 20}), learner, h.CreateLesson)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "l1", decodeData[model.Lesson](t, env).ID)
}

func multipartRequest(t *testing.T, target string, field string, payload []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "thumb.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req.WithContext(middleware.WithUser(req.Context(), learner))
}

func TestAdminHandler_UploadThumbnail(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, 1<<20)

	r := chi.NewRouter()
	r.Post("/courses/{id}/thumbnail", h.UploadThumbnail)

	t.Run("forwards file body", func(t *testing.T) {
		svc.On("UploadThumbnail", mock.Anything, learner, "c1", "image-bytes").
			Return(model.Course{ID: "c1", ThumbnailURL: "https://cdn.test/c1.jpg"}, nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "/courses/c1/thumbnail", "file", []byte("image-bytes")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://cdn.test/c1.jpg")
	})

	t.Run("missing file field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "/courses/c1/thumbnail", "image", []byte("image-bytes")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
