package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"go-lms/internal/database"
	"go-lms/internal/model"
	"go-lms/internal/service"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const courseProgressView = "course_progress_view"

var courseProgressColumns = []string{
	"id", "title", "description", "difficulty", "category", "thumbnail_url",
	"published", "position", "created_at", "updated_at",
	"completed_lessons", "total_lessons", "completion_percentage", "last_activity_at",
}

var errUnknownColumn = errors.New("unknown column")

type CourseQueryFactory struct {
	db *database.DB
}

func NewCourseQueryFactory(db *database.DB) *CourseQueryFactory {
	return &CourseQueryFactory{db: db}
}

func (f *CourseQueryFactory) NewCourseQuery(user *model.User) service.CourseQuery {
	return &CourseQuery{db: f.db, user: user}
}

// CourseQuery accumulates predicates and renders them with squirrel. Column
// names are checked against the view's columns since they are interpolated.
type CourseQuery struct {
	db    *database.DB
	user  *model.User
	where []sq.Sqlizer
	order []string
	from  int
	to    int
	paged bool
	err   error
}

func (q *CourseQuery) ILike(column string, pattern string) service.CourseQuery {
	if q.checkColumn(column) {
		q.where = append(q.where, sq.ILike{column: pattern})
	}
	return q
}

func (q *CourseQuery) In(column string, values []string) service.CourseQuery {
	if q.checkColumn(column) {
		q.where = append(q.where, sq.Eq{column: values})
	}
	return q
}

func (q *CourseQuery) Or(conditions ...service.Condition) service.CourseQuery {
	if len(conditions) == 0 {
		return q
	}
	or := make(sq.Or, 0, len(conditions))
	for _, c := range conditions {
		expr, err := q.condition(c)
		if err != nil {
			q.err = err
			return q
		}
		or = append(or, expr)
	}
	q.where = append(q.where, or)
	return q
}

func (q *CourseQuery) Order(column string, opts service.OrderOptions) service.CourseQuery {
	if !q.checkColumn(column) {
		return q
	}
	direction, nulls := "DESC", "NULLS LAST"
	if opts.Ascending {
		direction = "ASC"
	}
	if opts.NullsFirst {
		nulls = "NULLS FIRST"
	}
	q.order = append(q.order, fmt.Sprintf("%s %s %s", column, direction, nulls))
	return q
}

func (q *CourseQuery) Range(from int, to int) service.CourseQuery {
	if from < 0 || to < from {
		q.err = fmt.Errorf("%w: page range %d-%d", model.ErrInvalidInput, from, to)
		return q
	}
	q.from, q.to, q.paged = from, to, true
	return q
}

func (q *CourseQuery) Execute(ctx context.Context) ([]model.CourseProgressRow, int, error) {
	selectQuery, countQuery, err := q.build()
	if err != nil {
		return nil, 0, err
	}

	selectSQL, selectArgs, err := selectQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build course query: %w", err)
	}
	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build course count: %w", err)
	}

	var (
		rows  []model.CourseProgressRow
		total int
	)
	err = q.db.WithUser(ctx, q.user, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count courses: %w", err)
		}

		result, err := tx.Query(ctx, selectSQL, selectArgs...)
		if err != nil {
			return fmt.Errorf("query courses: %w", err)
		}
		rows, err = pgx.CollectRows(result, scanCourseProgressRow)
		if err != nil {
			return fmt.Errorf("scan courses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (q *CourseQuery) build() (sq.SelectBuilder, sq.SelectBuilder, error) {
	if q.err != nil {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, q.err
	}

	selectQuery := psq.Select(courseProgressColumns...).From(courseProgressView)
	countQuery := psq.Select("COUNT(*)").From(courseProgressView)
	for _, pred := range q.where {
		selectQuery = selectQuery.Where(pred)
		countQuery = countQuery.Where(pred)
	}

	// Stable tiebreak so page boundaries do not shift between requests.
	selectQuery = selectQuery.OrderBy(append(q.order, "id ASC")...)
	if q.paged {
		selectQuery = selectQuery.Offset(uint64(q.from)).Limit(uint64(q.to - q.from + 1))
	}
	return selectQuery, countQuery, nil
}

func (q *CourseQuery) condition(c service.Condition) (sq.Sqlizer, error) {
	if len(c.All) > 0 {
		and := make(sq.And, 0, len(c.All))
		for _, part := range c.All {
			expr, err := q.condition(part)
			if err != nil {
				return nil, err
			}
			and = append(and, expr)
		}
		return and, nil
	}

	if !isCourseColumn(c.Column) {
		return nil, fmt.Errorf("%w: %s", errUnknownColumn, c.Column)
	}
	switch c.Op {
	case service.OpEq:
		return sq.Eq{c.Column: c.Value}, nil
	case service.OpGt:
		return sq.Gt{c.Column: c.Value}, nil
	case service.OpLt:
		return sq.Lt{c.Column: c.Value}, nil
	case service.OpIsNull:
		return sq.Eq{c.Column: nil}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func (q *CourseQuery) checkColumn(column string) bool {
	if isCourseColumn(column) {
		return true
	}
	if q.err == nil {
		q.err = fmt.Errorf("%w: %s", errUnknownColumn, column)
	}
	return false
}

func isCourseColumn(column string) bool {
	for _, c := range courseProgressColumns {
		if c == column {
			return true
		}
	}
	return false
}

func scanCourseProgressRow(row pgx.CollectableRow) (model.CourseProgressRow, error) {
	var r model.CourseProgressRow
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Difficulty, &r.Category, &r.ThumbnailURL,
		&r.Published, &r.Position, &r.CreatedAt, &r.UpdatedAt,
		&r.CompletedLessons, &r.TotalLessons, &r.CompletionPercentage, &r.LastActivityAt,
	)
	return r, err
}
