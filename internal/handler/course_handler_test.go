package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-lms/internal/model"
	"go-lms/internal/service"
)

type MockCourseService struct {
	mock.Mock
}

func (m *MockCourseService) FetchCourses(ctx context.Context, user *model.User, req service.CourseListRequest) (model.CoursePage, error) {
	args := m.Called(ctx, user, req)
	return args.Get(0).(model.CoursePage), args.Error(1)
}

func (m *MockCourseService) GetCourse(ctx context.Context, user *model.User, courseID string) (model.CourseDetail, error) {
	args := m.Called(ctx, user, courseID)
	return args.Get(0).(model.CourseDetail), args.Error(1)
}

func TestCourseHandler_List(t *testing.T) {
	svc := new(MockCourseService)
	h := NewCourseHandler(svc)

	want := service.CourseListRequest{
		Filters: model.CourseFilters{
			Search:     "go",
			Difficulty: []string{"beginner", "advanced"},
			Category:   []string{"backend"},
			Status:     []string{"in_progress"},
		},
		SortBy:     "title_asc",
		Pagination: model.PageRequest{Page: 2, PageSize: 5},
	}
	page := model.CoursePage{
		Data:       []model.CourseWithProgress{{Course: model.Course{ID: "c1", Title: "Go"}}},
		Pagination: model.Pagination{Page: 2, PageSize: 5, Total: 11},
	}
	svc.On("FetchCourses", mock.Anything, mock.AnythingOfType("*model.User"), want).Return(page, nil)

	rec, env := serve(t, http.MethodGet, "/courses",
		"/courses?q=+go+&difficulty=beginner,advanced&category=backend&status=in_progress&sort=title_asc&page=2&page_size=5",
		nil, learner, h.List)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 3, env.Meta.TotalPages)
	courses := decodeData[[]model.CourseWithProgress](t, env)
	require.Len(t, courses, 1)
	assert.Equal(t, "c1", courses[0].ID)
	svc.AssertExpectations(t)
}

func TestCourseHandler_ListRejectsBadPage(t *testing.T) {
	svc := new(MockCourseService)
	h := NewCourseHandler(svc)

	rec, env := serve(t, http.MethodGet, "/courses", "/courses?page=abc", nil, learner, h.List)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	svc.AssertNotCalled(t, "FetchCourses", mock.Anything, mock.Anything, mock.Anything)
}

func TestCourseHandler_ListRequiresUser(t *testing.T) {
	h := NewCourseHandler(new(MockCourseService))

	rec, _ := serve(t, http.MethodGet, "/courses", "/courses", nil, nil, h.List)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseHandler_Get(t *testing.T) {
	svc := new(MockCourseService)
	h := NewCourseHandler(svc)

	svc.On("GetCourse", mock.Anything, mock.Anything, "c1").
		Return(model.CourseDetail{CourseWithProgress: model.CourseWithProgress{Course: model.Course{ID: "c1"}}}, nil)
	svc.On("GetCourse", mock.Anything, mock.Anything, "missing").
		Return(model.CourseDetail{}, model.ErrCourseNotFound)

	rec, env := serve(t, http.MethodGet, "/courses/{id}", "/courses/c1", nil, learner, h.Get)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", decodeData[model.CourseDetail](t, env).ID)

	rec, env = serve(t, http.MethodGet, "/courses/{id}", "/courses/missing", nil, learner, h.Get)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
