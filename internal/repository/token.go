package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// ErrTokenNotFound is returned when a token id does not exist.
var ErrTokenNotFound = errors.New("token not found")

const tokenColumns = `id, user_id, name, token_hash, prefix, abilities, last_used_at, revoked_at, created_at`

// CreateToken inserts a personal access token.
func (r *Repository) CreateToken(ctx context.Context, token *model.AuthToken) error {
	query := `
		INSERT INTO personal_access_tokens (id, user_id, name, token_hash, prefix, abilities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Name,
		token.TokenHash,
		token.Prefix,
		pq.Array(token.Abilities),
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetTokensByPrefix retrieves all active tokens matching a prefix.
// Used during authentication to find candidate tokens for verification.
func (r *Repository) GetTokensByPrefix(ctx context.Context, prefix string) ([]*model.AuthToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM personal_access_tokens
		WHERE prefix = $1 AND revoked_at IS NULL
	`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AuthToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// ListTokensByUserID returns every token of a user, newest first.
func (r *Repository) ListTokensByUserID(ctx context.Context, userID string) ([]*model.AuthToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM personal_access_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AuthToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// TouchToken updates last_used_at.
func (r *Repository) TouchToken(ctx context.Context, id string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE personal_access_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func scanToken(row pgx.Row) (*model.AuthToken, error) {
	var token model.AuthToken
	var abilities []string

	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Name,
		&token.TokenHash,
		&token.Prefix,
		pq.Array(&abilities),
		&token.LastUsedAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	token.Abilities = abilities
	return &token, nil
}
