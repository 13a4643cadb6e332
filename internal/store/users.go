package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"podai/internal/models"
)

const defaultTokenGrant = 3

// UpsertUser inserts a new user or refreshes the username of an existing
// one. New users start with the default token grant.
func (s *Store) UpsertUser(ctx context.Context, id, username string) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			updated_at = NOW()
		RETURNING id, username, tokens, rss_uuid, created_at, updated_at
	`
	user := &models.User{}
	err := s.db.GetContext(ctx, user, query, id, username, defaultTokenGrant)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("failed to upsert user")
		return nil, err
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.GetContext(ctx, user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByRSSUUID fetches a user by the opaque feed identifier.
func (s *Store) GetUserByRSSUUID(ctx context.Context, rssUUID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.GetContext(ctx, user, "SELECT * FROM users WHERE rss_uuid = $1", rssUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TryConsumeToken decrements the user's token balance by one. The
// conditional update makes the check-and-decrement a single atomic
// statement: of N concurrent calls against a balance of B, exactly
// min(N, B) succeed. A false return means no tokens; a non-nil error means
// the store was unreachable and the caller may retry.
func (s *Store) TryConsumeToken(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET tokens = tokens - 1, updated_at = NOW() WHERE id = $1 AND tokens > 0",
		userID)
	if err != nil {
		return false, fmt.Errorf("failed to consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
