package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lms/internal/autherr"
	"go-lms/internal/model"
	"go-lms/internal/service"
)

func TestCourseQueryBuild(t *testing.T) {
	t.Run("filters, order and range", func(t *testing.T) {
		q := NewCourseQueryFactory(nil).NewCourseQuery(&model.User{ID: "u1"}).(*CourseQuery)
		q.ILike("title", "%react%").
			In("difficulty", []string{"beginner", "advanced"}).
			Or(
				service.Eq("completion_percentage", 100),
				service.And(service.Gt("completion_percentage", 0), service.Lt("completion_percentage", 100)),
				service.IsNull("completion_percentage"),
			).
			Order("completion_percentage", service.OrderOptions{NullsFirst: true}).
			Range(5, 9)

		selectQuery, countQuery, err := q.build()
		require.NoError(t, err)

		sql, args, err := selectQuery.ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "FROM course_progress_view")
		assert.Contains(t, sql, "title ILIKE $1")
		assert.Contains(t, sql, "difficulty IN ($2,$3)")
		assert.Contains(t, sql, "(completion_percentage = $4 OR (completion_percentage > $5 AND completion_percentage < $6) OR completion_percentage IS NULL)")
		assert.Contains(t, sql, "ORDER BY completion_percentage DESC NULLS FIRST, id ASC")
		assert.Contains(t, sql, "LIMIT 5 OFFSET 5")
		assert.Equal(t, []any{"%react%", "beginner", "advanced", 100, 0, 100}, args)

		countSQL, countArgs, err := countQuery.ToSql()
		require.NoError(t, err)
		assert.Contains(t, countSQL, "SELECT COUNT(*) FROM course_progress_view WHERE")
		assert.NotContains(t, countSQL, "LIMIT")
		assert.Len(t, countArgs, 6)
	})

	t.Run("ascending order puts nulls last", func(t *testing.T) {
		q := NewCourseQueryFactory(nil).NewCourseQuery(&model.User{ID: "u1"}).(*CourseQuery)
		q.Order("title", service.OrderOptions{Ascending: true})

		selectQuery, _, err := q.build()
		require.NoError(t, err)
		sql, _, err := selectQuery.ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "ORDER BY title ASC NULLS LAST, id ASC")
		assert.NotContains(t, sql, "LIMIT")
	})

	t.Run("rejects columns outside the view", func(t *testing.T) {
		q := NewCourseQueryFactory(nil).NewCourseQuery(&model.User{ID: "u1"}).(*CourseQuery)
		q.Order("title; DROP TABLE courses", service.OrderOptions{})

		_, _, err := q.build()
		require.ErrorIs(t, err, errUnknownColumn)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		q := NewCourseQueryFactory(nil).NewCourseQuery(&model.User{ID: "u1"}).(*CourseQuery)
		q.Range(10, 2)

		_, _, err := q.build()
		require.Error(t, err)
	})
}

func TestCourseQueryRangeRejection(t *testing.T) {
	for _, r := range [][2]int{{-12, -1}, {10, 9}} {
		q := NewCourseQueryFactory(nil).NewCourseQuery(&model.User{ID: "u1"}).(*CourseQuery)
		q.Range(r[0], r[1])

		_, _, err := q.build()
		require.ErrorIs(t, err, model.ErrInvalidInput)
		assert.False(t, autherr.IsAuthError(err), err.Error())
	}
}
