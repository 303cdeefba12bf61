package service

import (
	"context"
	"fmt"
	"time"

	"go-lms/internal/model"
)

type StreakStore interface {
	// Streak returns ok=false when the user has no recorded activity.
	Streak(ctx context.Context, user *model.User) (model.Streak, bool, error)
	SaveStreak(ctx context.Context, user *model.User, streak model.Streak) error
}

// StreakService counts consecutive UTC calendar days with activity.
type StreakService struct {
	store StreakStore
	now   func() time.Time
}

func NewStreakService(store StreakStore) *StreakService {
	return &StreakService{store: store, now: time.Now}
}

// RecordActivity folds an activity at `at` into the user's streak. Same-day
// activity leaves the streak untouched, the next day extends it and any longer
// gap restarts it at 1.
func (s *StreakService) RecordActivity(ctx context.Context, user *model.User, at time.Time) (model.StreakUpdate, error) {
	if user == nil {
		return model.StreakUpdate{}, model.ErrUnauthenticated
	}

	today := calendarDay(at)
	current, ok, err := s.store.Streak(ctx, user)
	if err != nil {
		return model.StreakUpdate{}, fmt.Errorf("load streak: %w", err)
	}

	if !ok {
		started := model.Streak{UserID: user.ID, CurrentStreak: 1, LongestStreak: 1, LastActivityDate: today}
		if err := s.store.SaveStreak(ctx, user, started); err != nil {
			return model.StreakUpdate{}, fmt.Errorf("save streak: %w", err)
		}
		return model.StreakUpdate{Streak: started, Maintained: true, Changed: true}, nil
	}

	daysDiff := daysBetween(current.LastActivityDate, today)
	if daysDiff <= 0 {
		return model.StreakUpdate{Streak: current, Maintained: true, Changed: false}, nil
	}

	updated := current
	updated.LastActivityDate = today
	maintained := daysDiff == 1
	if maintained {
		updated.CurrentStreak++
	} else {
		updated.CurrentStreak = 1
	}
	if updated.CurrentStreak > updated.LongestStreak {
		updated.LongestStreak = updated.CurrentStreak
	}

	if err := s.store.SaveStreak(ctx, user, updated); err != nil {
		return model.StreakUpdate{}, fmt.Errorf("save streak: %w", err)
	}
	return model.StreakUpdate{Streak: updated, Maintained: maintained, Changed: true}, nil
}

// Current reports the streak as of now: a streak whose last activity is older
// than yesterday counts as broken.
func (s *StreakService) Current(ctx context.Context, user *model.User) (model.Streak, error) {
	streak, ok, err := s.store.Streak(ctx, user)
	if err != nil {
		return model.Streak{}, fmt.Errorf("load streak: %w", err)
	}
	if !ok {
		return model.Streak{UserID: user.ID}, nil
	}
	if daysBetween(streak.LastActivityDate, calendarDay(s.now())) > 1 {
		streak.CurrentStreak = 0
	}
	return streak, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from time.Time, to time.Time) int {
	return int(calendarDay(to).Sub(calendarDay(from)).Hours() / 24)
}
