package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"go-lms/internal/database"
	"go-lms/internal/model"
)

var courseColumns = []string{
	"id", "title", "description", "difficulty", "category", "thumbnail_url",
	"published", "position", "created_at", "updated_at",
}

// ContentRepository reads and writes courses, modules, lessons and lesson
// progress inside the caller's row-level security scope.
type ContentRepository struct {
	db *database.DB
}

func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) CourseProgress(ctx context.Context, user *model.User, courseID string) (model.CourseProgressRow, error) {
	query, args, err := psq.Select(courseProgressColumns...).
		From(courseProgressView).
		Where(sq.Eq{"id": courseID}).
		ToSql()
	if err != nil {
		return model.CourseProgressRow{}, fmt.Errorf("build course progress query: %w", err)
	}

	var row model.CourseProgressRow
	err = r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		row, err = pgx.CollectExactlyOneRow(rows, scanCourseProgressRow)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CourseProgressRow{}, model.ErrCourseNotFound
	}
	if err != nil {
		return model.CourseProgressRow{}, fmt.Errorf("find course progress: %w", err)
	}
	return row, nil
}

func (r *ContentRepository) ModulesWithLessons(ctx context.Context, user *model.User, courseID string) ([]model.Module, error) {
	var modules []model.Module
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT m.id, m.course_id, m.title, m.position,
			        l.id, l.title, l.content, l.xp_reward, l.position, lp.completed_at
			 FROM modules m
			 LEFT JOIN lessons l ON l.module_id = m.id
			 LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $2
			 WHERE m.course_id = $1
			 ORDER BY m.position, m.id, l.position, l.id`, courseID, user.ID)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := map[string]int{}
		for rows.Next() {
			var (
				m         model.Module
				lessonID  *string
				title     *string
				content   *string
				xpReward  *int
				position  *int
				completed *time.Time
			)
			if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position,
				&lessonID, &title, &content, &xpReward, &position, &completed); err != nil {
				return err
			}

			i, seen := index[m.ID]
			if !seen {
				m.Lessons = []model.Lesson{}
				modules = append(modules, m)
				i = len(modules) - 1
				index[m.ID] = i
			}
			if lessonID != nil {
				modules[i].Lessons = append(modules[i].Lessons, model.Lesson{
					ID:          *lessonID,
					ModuleID:    m.ID,
					Title:       deref(title),
					Content:     deref(content),
					XPReward:    deref(xpReward),
					Position:    deref(position),
					CompletedAt: completed,
				})
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	if modules == nil {
		modules = []model.Module{}
	}
	return modules, nil
}

func (r *ContentRepository) CreateCourse(ctx context.Context, user *model.User, c model.Course) (model.Course, error) {
	var created model.Course
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		query, args, err := psq.Insert("courses").
			Columns("id", "title", "description", "difficulty", "category", "published", "position").
			Values(c.ID, c.Title, c.Description, c.Difficulty, c.Category, c.Published, c.Position).
			Suffix("RETURNING " + strings.Join(courseColumns, ", ")).
			ToSql()
		if err != nil {
			return err
		}
		created, err = scanCourse(tx.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return model.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return created, nil
}

func (r *ContentRepository) UpdateCourse(ctx context.Context, user *model.User, courseID string, req model.UpdateCourseRequest) (model.Course, error) {
	update := psq.Update("courses").Set("updated_at", sq.Expr("NOW()"))
	if req.Title != nil {
		update = update.Set("title", *req.Title)
	}
	if req.Description != nil {
		update = update.Set("description", *req.Description)
	}
	if req.Difficulty != nil {
		update = update.Set("difficulty", *req.Difficulty)
	}
	if req.Category != nil {
		update = update.Set("category", *req.Category)
	}
	if req.Published != nil {
		update = update.Set("published", *req.Published)
	}
	if req.Position != nil {
		update = update.Set("position", *req.Position)
	}

	return r.updateCourse(ctx, user, update.Where(sq.Eq{"id": courseID}))
}

func (r *ContentRepository) SetCourseThumbnail(ctx context.Context, user *model.User, courseID string, url string) (model.Course, error) {
	return r.updateCourse(ctx, user, psq.Update("courses").
		Set("thumbnail_url", url).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": courseID}))
}

func (r *ContentRepository) updateCourse(ctx context.Context, user *model.User, update sq.UpdateBuilder) (model.Course, error) {
	query, args, err := update.Suffix("RETURNING " + strings.Join(courseColumns, ", ")).ToSql()
	if err != nil {
		return model.Course{}, fmt.Errorf("build course update: %w", err)
	}

	var updated model.Course
	err = r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		var scanErr error
		updated, scanErr = scanCourse(tx.QueryRow(ctx, query, args...))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Course{}, model.ErrCourseNotFound
	}
	if err != nil {
		return model.Course{}, fmt.Errorf("update course: %w", err)
	}
	return updated, nil
}

func (r *ContentRepository) DeleteCourse(ctx context.Context, user *model.User, courseID string) error {
	return r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, courseID)
		if err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrCourseNotFound
		}
		return nil
	})
}

func (r *ContentRepository) CreateModule(ctx context.Context, user *model.User, m model.Module) (model.Module, error) {
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, m.CourseID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.ErrCourseNotFound
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO modules (id, course_id, title, position) VALUES ($1, $2, $3, $4)`,
			m.ID, m.CourseID, m.Title, m.Position)
		return err
	})
	if err != nil {
		return model.Module{}, fmt.Errorf("insert module: %w", err)
	}
	m.Lessons = []model.Lesson{}
	return m, nil
}

func (r *ContentRepository) CreateLesson(ctx context.Context, user *model.User, l model.Lesson) (model.Lesson, error) {
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM modules WHERE id = $1)`, l.ModuleID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.ErrModuleNotFound
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO lessons (id, module_id, title, content, xp_reward, position) VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.ModuleID, l.Title, l.Content, l.XPReward, l.Position)
		return err
	})
	if err != nil {
		return model.Lesson{}, fmt.Errorf("insert lesson: %w", err)
	}
	return l, nil
}

// Lesson returns the lesson and the id of the course it belongs to.
func (r *ContentRepository) Lesson(ctx context.Context, user *model.User, lessonID string) (model.Lesson, string, error) {
	var (
		l        model.Lesson
		courseID string
	)
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT l.id, l.module_id, l.title, l.xp_reward, l.position, m.course_id
			 FROM lessons l
			 JOIN modules m ON m.id = l.module_id
			 JOIN courses c ON c.id = m.course_id
			 WHERE l.id = $1`, lessonID).
			Scan(&l.ID, &l.ModuleID, &l.Title, &l.XPReward, &l.Position, &courseID)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Lesson{}, "", model.ErrLessonNotFound
	}
	if err != nil {
		return model.Lesson{}, "", fmt.Errorf("find lesson: %w", err)
	}
	return l, courseID, nil
}

func (r *ContentRepository) MarkLessonComplete(ctx context.Context, user *model.User, lessonID string, at time.Time) (bool, error) {
	var inserted bool
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO lesson_progress (user_id, lesson_id, completed_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, lesson_id) DO NOTHING`, user.ID, lessonID, at)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark lesson complete: %w", err)
	}
	return inserted, nil
}

func scanCourse(row pgx.Row) (model.Course, error) {
	var c model.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Difficulty, &c.Category, &c.ThumbnailURL,
		&c.Published, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
