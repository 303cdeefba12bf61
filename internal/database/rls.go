package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-lms/internal/model"
)

const authenticatedRole = "authenticated"

// WithUser runs fn in a transaction where row-level security policies see
// user as the caller. The claims mirror what the platform data API sets for a
// request carrying the user's access token.
func (db *DB) WithUser(ctx context.Context, user *model.User, fn func(tx pgx.Tx) error) error {
	if user == nil {
		return model.ErrUnauthenticated
	}

	claims, err := json.Marshal(map[string]any{
		"sub":   user.ID,
		"email": user.Email,
		"role":  authenticatedRole,
	})
	if err != nil {
		return fmt.Errorf("encode request claims: %w", err)
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims)); err != nil {
			return fmt.Errorf("set request claims: %w", err)
		}
		if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+authenticatedRole); err != nil {
			return fmt.Errorf("assume %s role: %w", authenticatedRole, err)
		}
		return fn(tx)
	})
}
