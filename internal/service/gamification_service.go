package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go-lms/internal/idempotency"
	"go-lms/internal/model"
)

// levelThresholds[i] is the XP floor of level i+1. Past the table each level
// costs levelStepXP more.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

const levelStepXP = 4000

type GamificationStore interface {
	// RecordXP inserts the event unless its idempotency key exists and returns
	// whether a row was stored plus the user's total afterwards.
	RecordXP(ctx context.Context, user *model.User, event model.XPEvent) (bool, int, error)
	UpdateLevel(ctx context.Context, user *model.User, level int) error
	TotalXP(ctx context.Context, user *model.User) (int, error)
	AchievementByCode(ctx context.Context, user *model.User, code string) (model.Achievement, error)
	RecordAchievement(ctx context.Context, user *model.User, achievementID string, key string) (bool, error)
	UserAchievements(ctx context.Context, user *model.User) ([]model.Achievement, error)
}

type GamificationService struct {
	store   GamificationStore
	streaks *StreakService
	observe func(result string)
}

func NewGamificationService(store GamificationStore, streaks *StreakService, observe func(result string)) *GamificationService {
	if observe == nil {
		observe = func(string) {}
	}
	return &GamificationService{store: store, streaks: streaks, observe: observe}
}

func (s *GamificationService) GrantXP(ctx context.Context, user *model.User, grant model.XPGrant) (model.XPResult, error) {
	if user == nil {
		return model.XPResult{}, model.ErrUnauthenticated
	}
	if grant.Amount < 0 {
		return model.XPResult{}, fmt.Errorf("%w: xp amount must not be negative", model.ErrInvalidInput)
	}
	if strings.TrimSpace(grant.Kind) == "" || strings.TrimSpace(grant.Identifier) == "" {
		return model.XPResult{}, fmt.Errorf("%w: xp grant needs kind and identifier", model.ErrInvalidInput)
	}

	version := grant.Version
	if version == 0 {
		version = 1
	}
	key := idempotency.Build(idempotency.Components{
		Kind:       grant.Kind,
		UserID:     user.ID,
		Identifier: grant.Identifier,
		Version:    version,
		Scope:      grant.Scope,
		Metadata:   grant.Metadata,
	})

	granted, total, err := s.store.RecordXP(ctx, user, model.XPEvent{
		UserID:         user.ID,
		IdempotencyKey: key,
		Kind:           grant.Kind,
		Amount:         grant.Amount,
	})
	if err != nil {
		s.observe("error")
		return model.XPResult{}, fmt.Errorf("record xp %s: %w", key, err)
	}

	level := LevelFor(total)
	if granted {
		s.observe("granted")
		if err := s.store.UpdateLevel(ctx, user, level.Level); err != nil {
			slog.Warn("failed to update cached level", "user_id", user.ID, "level", level.Level, "error", err)
		}
	} else {
		s.observe("duplicate")
		slog.Debug("xp grant already recorded", "user_id", user.ID, "key", key)
	}

	return model.XPResult{Granted: granted, Amount: grant.Amount, TotalXP: total, Level: level}, nil
}

// UnlockAchievement records the achievement once and grants its XP reward
// under the achievement's idempotency key. The bool reports a first-time unlock.
func (s *GamificationService) UnlockAchievement(ctx context.Context, user *model.User, code string) (model.Achievement, bool, error) {
	if user == nil {
		return model.Achievement{}, false, model.ErrUnauthenticated
	}

	achievement, err := s.store.AchievementByCode(ctx, user, code)
	if err != nil {
		return model.Achievement{}, false, fmt.Errorf("load achievement %s: %w", code, err)
	}

	unlocked, err := s.store.RecordAchievement(ctx, user, achievement.ID, idempotency.AchievementUnlock(user.ID, code))
	if err != nil {
		return model.Achievement{}, false, fmt.Errorf("unlock achievement %s: %w", code, err)
	}

	// The reward is granted on every call: an earlier unlock whose grant failed
	// is completed here, and a grant that already exists collapses on its key.
	if achievement.XPReward > 0 {
		if _, err := s.GrantXP(ctx, user, model.XPGrant{
			Kind:       idempotency.KindAchievement,
			Identifier: code,
			Version:    1,
			Amount:     achievement.XPReward,
		}); err != nil {
			return achievement, unlocked, err
		}
	}

	if unlocked {
		slog.Info("achievement unlocked", "user_id", user.ID, "code", code)
	}
	return achievement, unlocked, nil
}

func (s *GamificationService) Summary(ctx context.Context, user *model.User) (model.GamificationSummary, error) {
	if user == nil {
		return model.GamificationSummary{}, model.ErrUnauthenticated
	}

	total, err := s.store.TotalXP(ctx, user)
	if err != nil {
		return model.GamificationSummary{}, fmt.Errorf("load xp total: %w", err)
	}

	achievements, err := s.store.UserAchievements(ctx, user)
	if err != nil {
		return model.GamificationSummary{}, fmt.Errorf("load achievements: %w", err)
	}

	streak, err := s.streaks.Current(ctx, user)
	if err != nil {
		return model.GamificationSummary{}, err
	}

	return model.GamificationSummary{
		TotalXP:      total,
		Level:        LevelFor(total),
		Streak:       streak,
		Achievements: achievements,
	}, nil
}

func LevelFor(xp int) model.LevelInfo {
	if xp < 0 {
		xp = 0
	}

	level := 1
	for level < len(levelThresholds) && xp >= levelThresholds[level] {
		level++
	}
	if level == len(levelThresholds) {
		level += (xp - levelThresholds[len(levelThresholds)-1]) / levelStepXP
	}

	floor, next := levelFloor(level), levelFloor(level+1)
	return model.LevelInfo{
		Level:         level,
		CurrentXP:     xp,
		LevelFloorXP:  floor,
		NextLevelXP:   next,
		XPToNextLevel: next - xp,
	}
}

func levelFloor(level int) int {
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	return levelThresholds[len(levelThresholds)-1] + (level-len(levelThresholds))*levelStepXP
}
