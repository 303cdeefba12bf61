package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-lms/internal/database"
	"go-lms/internal/model"
)

type ProfileRepository struct {
	db *database.DB
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// IsAdmin reads the authoritative admin flag. A user without a profile row is
// not an admin.
func (r *ProfileRepository) IsAdmin(ctx context.Context, user *model.User) (bool, error) {
	var isAdmin bool
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT is_admin FROM profiles WHERE id = $1`, user.ID).Scan(&isAdmin)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read admin flag: %w", err)
	}
	return isAdmin, nil
}

func (r *ProfileRepository) Profile(ctx context.Context, user *model.User) (model.Profile, error) {
	var p model.Profile
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		if err := ensureProfile(ctx, tx, user); err != nil {
			return err
		}
		return scanProfile(tx.QueryRow(ctx,
			`SELECT id, email, display_name, is_admin, total_xp, level, created_at, updated_at
			 FROM profiles WHERE id = $1`, user.ID), &p)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, user *model.User, displayName string) (model.Profile, error) {
	var p model.Profile
	err := r.db.WithUser(ctx, user, func(tx pgx.Tx) error {
		if err := ensureProfile(ctx, tx, user); err != nil {
			return err
		}
		return scanProfile(tx.QueryRow(ctx,
			`UPDATE profiles SET display_name = $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING id, email, display_name, is_admin, total_xp, level, created_at, updated_at`,
			user.ID, displayName), &p)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// ensureProfile creates the caller's profile row on first use.
func ensureProfile(ctx context.Context, tx pgx.Tx, user *model.User) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO profiles (id, email) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row, p *model.Profile) error {
	return row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsAdmin, &p.TotalXP, &p.Level, &p.CreatedAt, &p.UpdatedAt)
}
