package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"go-lms/internal/autherr"
	"go-lms/internal/cache"
	"go-lms/internal/model"
)

const (
	defaultPage     = 1
	defaultPageSize = 12
	maxPageSize     = 100
	defaultSortBy   = "progress_desc"

	// maxPage keeps (page-1)*pageSize far from int overflow.
	maxPage = 100_000

	columnCompletion = "completion_percentage"
)

var sortColumns = map[string]string{
	"title":      "title",
	"progress":   columnCompletion,
	"difficulty": "difficulty",
	"created":    "created_at",
	"updated":    "updated_at",
	"activity":   "last_activity_at",
	"position":   "position",
}

var knownStatuses = []string{model.StatusCompleted, model.StatusInProgress, model.StatusNotStarted}

type CourseListRequest struct {
	Filters    model.CourseFilters
	SortBy     string
	Pagination model.PageRequest
}

// CourseCacheTTL is how long a fetched course page is served from memory.
const CourseCacheTTL = 5 * time.Minute

type CourseService struct {
	queries     CourseQueryFactory
	content     CourseContentReader
	interceptor *autherr.Interceptor
	cache       *cache.TTL[string, model.CoursePage]
}

func NewCourseService(queries CourseQueryFactory, content CourseContentReader, interceptor *autherr.Interceptor, pageCache *cache.TTL[string, model.CoursePage]) *CourseService {
	if pageCache == nil {
		pageCache = cache.New(cache.WithTTL[string, model.CoursePage](CourseCacheTTL))
	}
	return &CourseService{
		queries:     queries,
		content:     content,
		interceptor: interceptor,
		cache:       pageCache,
	}
}

func (s *CourseService) FetchCourses(ctx context.Context, user *model.User, req CourseListRequest) (model.CoursePage, error) {
	if user == nil {
		return model.CoursePage{}, model.ErrUnauthenticated
	}

	filters, err := normalizeFilters(req.Filters)
	if err != nil {
		return model.CoursePage{}, err
	}
	page, pageSize := normalizePage(req.Pagination)
	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy == "" {
		sortBy = defaultSortBy
	}

	key := courseCacheKey(user.ID, filters, sortBy, page, pageSize)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	query := s.queries.NewCourseQuery(user)
	query = applyFilters(query, filters)

	column, opts := resolveSort(sortBy)
	query = query.Order(column, opts)

	from := (page - 1) * pageSize
	query = query.Range(from, from+pageSize-1)

	type queryResult struct {
		rows  []model.CourseProgressRow
		total int
	}
	fetched, err := autherr.SafeQuery(ctx, s.interceptor, "fetch courses", func(ctx context.Context) (queryResult, error) {
		rows, total, err := query.Execute(ctx)
		return queryResult{rows: rows, total: total}, err
	})
	if err != nil {
		slog.Error("failed to fetch courses", "user_id", user.ID, "sort", sortBy, "page", page, "error", err)
		return model.CoursePage{}, fmt.Errorf("failed to fetch courses: %w", err)
	}

	courses := make([]model.CourseWithProgress, 0, len(fetched.rows))
	for _, row := range fetched.rows {
		if err := row.Validate(); err != nil {
			slog.Error("course row failed validation", "user_id", user.ID, "error", err)
			return model.CoursePage{}, err
		}
		courses = append(courses, toCourseWithProgress(row))
	}

	out := model.CoursePage{
		Data:       courses,
		Pagination: model.Pagination{Page: page, PageSize: pageSize, Total: fetched.total},
	}
	s.cache.Set(key, out)
	return out, nil
}

func (s *CourseService) GetCourse(ctx context.Context, user *model.User, courseID string) (model.CourseDetail, error) {
	if user == nil {
		return model.CourseDetail{}, model.ErrUnauthenticated
	}
	if strings.TrimSpace(courseID) == "" {
		return model.CourseDetail{}, fmt.Errorf("%w: course id is required", model.ErrInvalidInput)
	}

	row, err := autherr.SafeQuery(ctx, s.interceptor, "load course", func(ctx context.Context) (model.CourseProgressRow, error) {
		return s.content.CourseProgress(ctx, user, courseID)
	})
	if err != nil {
		return model.CourseDetail{}, fmt.Errorf("load course %s: %w", courseID, err)
	}
	if err := row.Validate(); err != nil {
		return model.CourseDetail{}, err
	}

	modules, err := autherr.SafeQuery(ctx, s.interceptor, "load course modules", func(ctx context.Context) ([]model.Module, error) {
		return s.content.ModulesWithLessons(ctx, user, courseID)
	})
	if err != nil {
		return model.CourseDetail{}, fmt.Errorf("load modules for course %s: %w", courseID, err)
	}

	return model.CourseDetail{CourseWithProgress: toCourseWithProgress(row), Modules: modules}, nil
}

func applyFilters(query CourseQuery, filters model.CourseFilters) CourseQuery {
	if filters.Search != "" {
		query = query.ILike("title", "%"+escapeLike(filters.Search)+"%")
	}
	if len(filters.Difficulty) > 0 {
		query = query.In("difficulty", filters.Difficulty)
	}
	if len(filters.Category) > 0 {
		query = query.In("category", filters.Category)
	}
	if len(filters.Status) > 0 {
		conditions := make([]Condition, 0, len(filters.Status))
		for _, status := range filters.Status {
			switch status {
			case model.StatusCompleted:
				conditions = append(conditions, Eq(columnCompletion, 100))
			case model.StatusInProgress:
				conditions = append(conditions, And(Gt(columnCompletion, 0), Lt(columnCompletion, 100)))
			case model.StatusNotStarted:
				conditions = append(conditions, Eq(columnCompletion, 0), IsNull(columnCompletion))
			}
		}
		query = query.Or(conditions...)
	}
	return query
}

// resolveSort splits "field_direction" and maps field through the column
// whitelist. Unknown fields sort by completion percentage.
func resolveSort(sortBy string) (string, OrderOptions) {
	field, direction := sortBy, "asc"
	if idx := strings.LastIndex(sortBy, "_"); idx >= 0 {
		field, direction = sortBy[:idx], sortBy[idx+1:]
	}

	column, ok := sortColumns[strings.ToLower(field)]
	if !ok {
		column = columnCompletion
	}

	ascending := !strings.EqualFold(direction, "desc")
	return column, OrderOptions{Ascending: ascending, NullsFirst: !ascending}
}

func normalizeFilters(filters model.CourseFilters) (model.CourseFilters, error) {
	clean := func(values []string) []string {
		values = lo.Map(values, func(v string, _ int) string { return strings.ToLower(strings.TrimSpace(v)) })
		return lo.Uniq(lo.Compact(values))
	}

	out := model.CourseFilters{
		Search:     strings.TrimSpace(filters.Search),
		Difficulty: clean(filters.Difficulty),
		Category:   lo.Uniq(lo.Compact(lo.Map(filters.Category, func(v string, _ int) string { return strings.TrimSpace(v) }))),
		Status:     clean(filters.Status),
	}

	if !utf8.ValidString(out.Search) || strings.ContainsRune(out.Search, 0) {
		return model.CourseFilters{}, fmt.Errorf("%w: search text must be valid UTF-8", model.ErrInvalidInput)
	}
	if unknown := lo.Without(out.Status, knownStatuses...); len(unknown) > 0 {
		return model.CourseFilters{}, fmt.Errorf("%w: unknown status %s", model.ErrInvalidInput, strings.Join(unknown, ", "))
	}
	if unknown := lo.Reject(out.Difficulty, func(d string, _ int) bool { return model.IsDifficulty(d) }); len(unknown) > 0 {
		return model.CourseFilters{}, fmt.Errorf("%w: unknown difficulty %s", model.ErrInvalidInput, strings.Join(unknown, ", "))
	}
	return out, nil
}

func normalizePage(req model.PageRequest) (int, int) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

func courseCacheKey(userID string, filters model.CourseFilters, sortBy string, page int, pageSize int) string {
	payload, _ := json.Marshal(struct {
		UserID   string              `json:"user_id"`
		Filters  model.CourseFilters `json:"filters"`
		SortBy   string              `json:"sortBy"`
		Page     int                 `json:"page"`
		PageSize int                 `json:"pageSize"`
	}{userID, filters, sortBy, page, pageSize})
	return string(payload)
}

func toCourseWithProgress(row model.CourseProgressRow) model.CourseWithProgress {
	percentage := 0.0
	if row.CompletionPercentage != nil {
		percentage = *row.CompletionPercentage
	}

	return model.CourseWithProgress{
		Course: row.Course,
		Progress: model.Progress{
			Percentage:     percentage,
			Completed:      row.CompletedLessons,
			Total:          row.TotalLessons,
			LastActivityAt: row.LastActivityAt,
			Status:         progressStatus(percentage),
		},
	}
}

func progressStatus(percentage float64) string {
	switch {
	case percentage >= 100:
		return model.StatusCompleted
	case percentage > 0:
		return model.StatusInProgress
	default:
		return model.StatusNotStarted
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
