package models

import "time"

// Podcast statuses. Transitions only move forward along
// empty -> script_done -> ready; error is reachable from any
// non-terminal status and is terminal.
const (
	StatusEmpty      = "empty"
	StatusScriptDone = "script_done"
	StatusReady      = "ready"
	StatusError      = "error"
)

type Podcast struct {
	ID              string     `db:"id"`
	UserID          string     `db:"user_id"`
	Name            string     `db:"name"`
	Subject         string     `db:"subject"`
	Status          string     `db:"status"`
	Script          *string    `db:"script"`
	AudioKey        *string    `db:"audio_key"`
	DurationSeconds *int       `db:"duration_seconds"`
	LikeCount       int        `db:"like_count"`
	CreatedAt       time.Time  `db:"created_at"`
	PublishedAt     *time.Time `db:"published_at"`
}

// HasScript reports whether audio can be (re)generated from stored metadata.
func (p *Podcast) HasScript() bool {
	return p.Script != nil && *p.Script != ""
}
