package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"podai/internal/models"
)

// CreatePodcast inserts a new podcast record in the empty status and
// returns it.
func (s *Store) CreatePodcast(ctx context.Context, userID, name, subject string) (models.Podcast, error) {
	podcast := models.Podcast{}
	query := `
		INSERT INTO podcasts (id, user_id, name, subject, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, name, subject, status, script, audio_key, duration_seconds, created_at, published_at
	`
	err := s.db.GetContext(ctx, &podcast, query, uuid.NewString(), userID, name, subject, models.StatusEmpty)
	if err != nil {
		return podcast, fmt.Errorf("failed to create podcast: %w", err)
	}
	return podcast, nil
}

// GetPodcast fetches one podcast owned by the given user.
func (s *Store) GetPodcast(ctx context.Context, userID, podcastID string) (models.Podcast, error) {
	podcast := models.Podcast{}
	query := `
		SELECT p.id, p.user_id, p.name, p.subject, p.status, p.script, p.audio_key,
		       p.duration_seconds, p.created_at, p.published_at,
		       (SELECT COUNT(*) FROM podcast_likes l WHERE l.podcast_id = p.id) AS like_count
		FROM podcasts p
		WHERE p.id = $1 AND p.user_id = $2
	`
	err := s.db.GetContext(ctx, &podcast, query, podcastID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return podcast, ErrNotFound
	}
	return podcast, err
}

// GetStatus returns just the status of a podcast.
func (s *Store) GetStatus(ctx context.Context, podcastID string) (string, error) {
	var status string
	err := s.db.GetContext(ctx, &status, "SELECT status FROM podcasts WHERE id = $1", podcastID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// SetScript persists the generated script and moves the podcast from empty
// to script_done. The status guard keeps transitions forward-only.
func (s *Store) SetScript(ctx context.Context, podcastID string, script models.Script) error {
	raw, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE podcasts SET script = $1, status = $2 WHERE id = $3 AND status = $4",
		raw, models.StatusScriptDone, podcastID, models.StatusEmpty)
	if err != nil {
		return fmt.Errorf("failed to set script: %w", err)
	}
	return s.checkTransition(res, podcastID, models.StatusScriptDone)
}

// SetAudioReady records the final audio reference and marks the podcast
// ready. Allowed from script_done and, for regeneration, from ready.
func (s *Store) SetAudioReady(ctx context.Context, podcastID, audioKey string, durationSeconds int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcasts
		SET status = $1, audio_key = $2, duration_seconds = $3, published_at = NOW()
		WHERE id = $4 AND status IN ($5, $1)`,
		models.StatusReady, audioKey, durationSeconds, podcastID, models.StatusScriptDone)
	if err != nil {
		return fmt.Errorf("failed to set audio ready: %w", err)
	}
	return s.checkTransition(res, podcastID, models.StatusReady)
}

// SetError marks a podcast failed. Reachable from any non-terminal status;
// a no-op error for podcasts already terminal.
func (s *Store) SetError(ctx context.Context, podcastID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE podcasts SET status = $1 WHERE id = $2 AND status NOT IN ($1, $3)",
		models.StatusError, podcastID, models.StatusReady)
	if err != nil {
		return fmt.Errorf("failed to set error status: %w", err)
	}
	return s.checkTransition(res, podcastID, models.StatusError)
}

func (s *Store) checkTransition(res sql.Result, podcastID, target string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Warn().Str("podcast_id", podcastID).Str("target", target).Msg("status transition rejected")
		return ErrInvalidTransition
	}
	return nil
}

// ListByUser returns a page of the user's podcasts, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, page, perPage int) ([]models.Podcast, error) {
	return s.list(ctx, userID, "p.created_at DESC", page, perPage)
}

// ListByLikes returns a page of the user's podcasts ordered by like count.
func (s *Store) ListByLikes(ctx context.Context, userID string, page, perPage int) ([]models.Podcast, error) {
	return s.list(ctx, userID, "like_count DESC, p.created_at DESC", page, perPage)
}

func (s *Store) list(ctx context.Context, userID, order string, page, perPage int) ([]models.Podcast, error) {
	if perPage <= 0 {
		perPage = 5
	}
	query := fmt.Sprintf(`
		SELECT p.id, p.user_id, p.name, p.subject, p.status, p.script, p.audio_key,
		       p.duration_seconds, p.created_at, p.published_at,
		       (SELECT COUNT(*) FROM podcast_likes l WHERE l.podcast_id = p.id) AS like_count
		FROM podcasts p
		WHERE p.user_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`, order)
	var podcasts []models.Podcast
	err := s.db.SelectContext(ctx, &podcasts, query, userID, perPage, page*perPage)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to list podcasts")
		return nil, err
	}
	return podcasts, nil
}

// ListReadyByUser returns all of the user's ready podcasts, for the RSS feed.
func (s *Store) ListReadyByUser(ctx context.Context, userID string) ([]models.Podcast, error) {
	query := `
		SELECT p.id, p.user_id, p.name, p.subject, p.status, p.script, p.audio_key,
		       p.duration_seconds, p.created_at, p.published_at,
		       (SELECT COUNT(*) FROM podcast_likes l WHERE l.podcast_id = p.id) AS like_count
		FROM podcasts p
		WHERE p.user_id = $1 AND p.status = $2
		ORDER BY p.published_at DESC
	`
	var podcasts []models.Podcast
	err := s.db.SelectContext(ctx, &podcasts, query, userID, models.StatusReady)
	return podcasts, err
}

// LikePodcast records a like; liking twice is a no-op.
func (s *Store) LikePodcast(ctx context.Context, userID, podcastID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO podcast_likes (podcast_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		podcastID, userID)
	return err
}

// UnlikePodcast removes a like if present.
func (s *Store) UnlikePodcast(ctx context.Context, userID, podcastID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM podcast_likes WHERE podcast_id = $1 AND user_id = $2",
		podcastID, userID)
	return err
}
