// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const dbSystem = "postgresql"

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// bumpCartVersion advances the user's cart version if it still equals
// expected. It tells a stale version apart from a missing user so callers
// can return Conflict or NotFound.
func bumpCartVersion(ctx context.Context, tx pgx.Tx, userID string, expected int64) error {
	ct, err := tx.Exec(ctx,
		`UPDATE users SET cart_version = cart_version + 1, updated_at = NOW() WHERE id = $1 AND cart_version = $2`,
		userID, expected,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("user", userID)
	}
	return apperrors.Conflict("cart was modified concurrently")
}

func trace(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	return database.TraceQuery(ctx, dbSystem, operation, statement)
}
