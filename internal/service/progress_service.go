package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-lms/internal/autherr"
	"go-lms/internal/event"
	"go-lms/internal/idempotency"
	"go-lms/internal/model"
)

const (
	courseCompletionXP = 100
	streakMilestone    = 7

	AchievementFirstLesson = "first_lesson"
	AchievementFirstCourse = "first_course"
	AchievementWeekStreak  = "streak_7"
)

type ProgressStore interface {
	Lesson(ctx context.Context, user *model.User, lessonID string) (model.Lesson, string, error)
	// MarkLessonComplete reports false when the lesson was already complete.
	MarkLessonComplete(ctx context.Context, user *model.User, lessonID string, at time.Time) (bool, error)
}

type ProgressService struct {
	store        ProgressStore
	content      CourseContentReader
	gamification *GamificationService
	streaks      *StreakService
	interceptor  *autherr.Interceptor
	events       eventPublisher
	now          func() time.Time
}

type eventPublisher interface {
	Publish(e event.Event)
}

func NewProgressService(store ProgressStore, content CourseContentReader, gamification *GamificationService, streaks *StreakService, interceptor *autherr.Interceptor) *ProgressService {
	return &ProgressService{
		store:        store,
		content:      content,
		gamification: gamification,
		streaks:      streaks,
		interceptor:  interceptor,
		now:          time.Now,
	}
}

// SetPublisher enables learner notifications for completions and rewards.
func (s *ProgressService) SetPublisher(p eventPublisher) {
	s.events = p
}

// CompleteLesson marks a lesson complete and applies its rewards. Every write
// is idempotent, so retrying a request never grants XP twice.
func (s *ProgressService) CompleteLesson(ctx context.Context, user *model.User, lessonID string) (model.LessonCompletion, error) {
	if user == nil {
		return model.LessonCompletion{}, model.ErrUnauthenticated
	}
	if strings.TrimSpace(lessonID) == "" {
		return model.LessonCompletion{}, fmt.Errorf("%w: lesson id is required", model.ErrInvalidInput)
	}

	type lessonRef struct {
		lesson   model.Lesson
		courseID string
	}
	ref, err := autherr.SafeQuery(ctx, s.interceptor, "load lesson", func(ctx context.Context) (lessonRef, error) {
		lesson, courseID, err := s.store.Lesson(ctx, user, lessonID)
		return lessonRef{lesson: lesson, courseID: courseID}, err
	})
	if err != nil {
		return model.LessonCompletion{}, fmt.Errorf("load lesson %s: %w", lessonID, err)
	}

	now := s.now()
	inserted, err := autherr.SafeQuery(ctx, s.interceptor, "complete lesson", func(ctx context.Context) (bool, error) {
		return s.store.MarkLessonComplete(ctx, user, lessonID, now)
	})
	if err != nil {
		return model.LessonCompletion{}, fmt.Errorf("complete lesson %s: %w", lessonID, err)
	}

	result := model.LessonCompletion{LessonID: lessonID, CourseID: ref.courseID, AlreadyComplete: !inserted}

	result.XP, err = s.gamification.GrantXP(ctx, user, model.XPGrant{
		Kind:       idempotency.KindLessonComplete,
		Identifier: lessonID,
		Version:    1,
		Amount:     ref.lesson.XPReward,
	})
	if err != nil {
		return model.LessonCompletion{}, err
	}

	result.Streak, err = s.streaks.RecordActivity(ctx, user, now)
	if err != nil {
		return model.LessonCompletion{}, err
	}

	s.unlock(ctx, user, AchievementFirstLesson, &result)
	if result.Streak.Streak.CurrentStreak >= streakMilestone {
		s.unlock(ctx, user, AchievementWeekStreak, &result)
	}

	progress, err := s.content.CourseProgress(ctx, user, ref.courseID)
	if err != nil {
		slog.Warn("could not check course completion", "user_id", user.ID, "course_id", ref.courseID, "error", err)
		return result, nil
	}

	if progress.TotalLessons > 0 && progress.CompletedLessons >= progress.TotalLessons {
		result.CourseCompleted = true
		if _, err := s.gamification.GrantXP(ctx, user, model.XPGrant{
			Kind:       idempotency.KindCourseComplete,
			Identifier: ref.courseID,
			Version:    1,
			Amount:     courseCompletionXP,
		}); err != nil {
			return result, err
		}
		s.unlock(ctx, user, AchievementFirstCourse, &result)
	}

	slog.Info("lesson completed", "user_id", user.ID, "lesson_id", lessonID, "course_completed", result.CourseCompleted)
	s.publish(user, result)
	return result, nil
}

// publish emits only what changed, so repeated completions stay silent.
func (s *ProgressService) publish(user *model.User, result model.LessonCompletion) {
	if s.events == nil {
		return
	}
	if !result.AlreadyComplete {
		s.events.Publish(event.New(event.TypeLessonCompleted, user.ID, map[string]string{
			"lesson_id": result.LessonID,
			"course_id": result.CourseID,
		}))
	}
	if result.XP.Granted {
		s.events.Publish(event.New(event.TypeXPGranted, user.ID, result.XP))
	}
	for _, achievement := range result.Unlocked {
		s.events.Publish(event.New(event.TypeAchievementUnlocked, user.ID, achievement))
	}
	if result.CourseCompleted && !result.AlreadyComplete {
		s.events.Publish(event.New(event.TypeCourseCompleted, user.ID, map[string]string{"course_id": result.CourseID}))
	}
}

// unlock applies an achievement; a missing catalogue entry is not an error.
func (s *ProgressService) unlock(ctx context.Context, user *model.User, code string, result *model.LessonCompletion) {
	achievement, unlocked, err := s.gamification.UnlockAchievement(ctx, user, code)
	switch {
	case errors.Is(err, model.ErrAchievementNotFound):
		slog.Debug("achievement not configured", "code", code)
		return
	case err != nil:
		// The next completion retries the reward; the unlock itself stands.
		slog.Warn("failed to apply achievement", "user_id", user.ID, "code", code, "unlocked", unlocked, "error", err)
	}
	if unlocked {
		result.Unlocked = append(result.Unlocked, achievement)
	}
}
