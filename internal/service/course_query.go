package service

import (
	"context"

	"go-lms/internal/model"
)

type Operator string

const (
	OpEq     Operator = "eq"
	OpGt     Operator = "gt"
	OpLt     Operator = "lt"
	OpIsNull Operator = "is_null"
)

// Condition is a single column comparison, or a conjunction when All is set.
type Condition struct {
	Column string
	Op     Operator
	Value  any
	All    []Condition
}

func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

func Gt(column string, value any) Condition {
	return Condition{Column: column, Op: OpGt, Value: value}
}

func Lt(column string, value any) Condition {
	return Condition{Column: column, Op: OpLt, Value: value}
}

func IsNull(column string) Condition {
	return Condition{Column: column, Op: OpIsNull}
}

func And(conditions ...Condition) Condition {
	return Condition{All: conditions}
}

type OrderOptions struct {
	Ascending  bool
	NullsFirst bool
}

// CourseQuery is a fluent query over course_progress_view scoped to one
// user. Range bounds are inclusive row offsets.
type CourseQuery interface {
	ILike(column string, pattern string) CourseQuery
	In(column string, values []string) CourseQuery
	Or(conditions ...Condition) CourseQuery
	Order(column string, opts OrderOptions) CourseQuery
	Range(from int, to int) CourseQuery
	Execute(ctx context.Context) ([]model.CourseProgressRow, int, error)
}

type CourseQueryFactory interface {
	NewCourseQuery(user *model.User) CourseQuery
}

// CourseContentReader loads a single course with its modules and the
// user's lesson completions.
type CourseContentReader interface {
	CourseProgress(ctx context.Context, user *model.User, courseID string) (model.CourseProgressRow, error)
	ModulesWithLessons(ctx context.Context, user *model.User, courseID string) ([]model.Module, error)
}
