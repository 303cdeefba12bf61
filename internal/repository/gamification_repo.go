package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"go-lms/internal/database"
	"go-lms/internal/model"
)

// GamificationRepository stores XP events, achievements and streaks. Inserts
// keyed by an idempotency key use ON CONFLICT DO NOTHING so duplicates are
// reported, not failed.
type GamificationRepository struct {
	db *database.DB
}

func NewGamificationRepository(db *database.DB) *GamificationRepository {
	return &GamificationRepository{db: db}
}

func (r *GamificationRepository) RecordXP(ctx context.Context, user *model.User, event model.XPEvent) (bool, int, error) {
	var (
		inserted bool
		total    int
	)
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		if err := ensureProfile(ctx, tx, user); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO xp_events (user_id, idempotency_key, kind, amount)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (idempotency_key) DO NOTHING`,
			user.ID, event.IdempotencyKey, event.Kind, event.Amount)
		if err != nil {
			return fmt.Errorf("insert xp event: %w", err)
		}
		inserted = tag.RowsAffected() == 1

		if inserted {
			return tx.QueryRow(ctx,
				`UPDATE profiles SET total_xp = total_xp + $2, updated_at = NOW()
				 WHERE id = $1 RETURNING total_xp`, user.ID, event.Amount).Scan(&total)
		}
		return tx.QueryRow(ctx, `SELECT total_xp FROM profiles WHERE id = $1`, user.ID).Scan(&total)
	})
	if err != nil {
		return false, 0, fmt.Errorf("record xp: %w", err)
	}
	return inserted, total, nil
}

func (r *GamificationRepository) UpdateLevel(ctx context.Context, user *model.User, level int) error {
	return r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE profiles SET level = $2 WHERE id = $1 AND level <> $2`, user.ID, level)
		return err
	})
}

func (r *GamificationRepository) TotalXP(ctx context.Context, user *model.User) (int, error) {
	var total int
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT COALESCE((SELECT total_xp FROM profiles WHERE id = $1), 0)`, user.ID).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("read total xp: %w", err)
	}
	return total, nil
}

func (r *GamificationRepository) AchievementByCode(ctx context.Context, user *model.User, code string) (model.Achievement, error) {
	var a model.Achievement
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT id, code, title, description, xp_reward FROM achievements WHERE code = $1`, code).
			Scan(&a.ID, &a.Code, &a.Title, &a.Description, &a.XPReward)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Achievement{}, model.ErrAchievementNotFound
	}
	if err != nil {
		return model.Achievement{}, fmt.Errorf("find achievement: %w", err)
	}
	return a, nil
}

func (r *GamificationRepository) RecordAchievement(ctx context.Context, user *model.User, achievementID string, key string) (bool, error) {
	var inserted bool
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_achievements (user_id, achievement_id, idempotency_key)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`, user.ID, achievementID, key)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record achievement: %w", err)
	}
	return inserted, nil
}

func (r *GamificationRepository) UserAchievements(ctx context.Context, user *model.User) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT a.id, a.code, a.title, a.description, a.xp_reward, ua.unlocked_at
			 FROM user_achievements ua
			 JOIN achievements a ON a.id = ua.achievement_id
			 WHERE ua.user_id = $1
			 ORDER BY ua.unlocked_at`, user.ID)
		if err != nil {
			return err
		}
		achievements, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Achievement, error) {
			var a model.Achievement
			var unlocked time.Time
			err := row.Scan(&a.ID, &a.Code, &a.Title, &a.Description, &a.XPReward, &unlocked)
			a.UnlockedAt = &unlocked
			return a, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if achievements == nil {
		achievements = []model.Achievement{}
	}
	return achievements, nil
}

func (r *GamificationRepository) Streak(ctx context.Context, user *model.User) (model.Streak, bool, error) {
	s := model.Streak{UserID: user.ID}
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT current_streak, longest_streak, last_activity_date FROM user_streaks WHERE user_id = $1`, user.ID).
			Scan(&s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Streak{}, false, nil
	}
	if err != nil {
		return model.Streak{}, false, fmt.Errorf("read streak: %w", err)
	}
	s.LastActivityDate = s.LastActivityDate.UTC()
	return s, true, nil
}

func (r *GamificationRepository) SaveStreak(ctx context.Context, user *model.User, s model.Streak) error {
	return r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_activity_date)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id) DO UPDATE
			 SET current_streak = EXCLUDED.current_streak,
			     longest_streak = EXCLUDED.longest_streak,
			     last_activity_date = EXCLUDED.last_activity_date`,
			user.ID, s.CurrentStreak, s.LongestStreak, s.LastActivityDate)
		if err != nil {
			return fmt.Errorf("save streak: %w", err)
		}
		return nil
	})
}
