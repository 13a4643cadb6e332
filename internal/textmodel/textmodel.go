// Package textmodel wraps the generative text service behind the two
// operations script generation needs: a one-shot outline completion and a
// conversational session that keeps tone and continuity across section
// requests.
package textmodel

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse means the model answered with no usable content.
	// Not retried here; the caller owns per-section retry policy.
	ErrEmptyResponse = errors.New("empty response from text model")
	// ErrRateLimited is the quota condition after backoff attempts are
	// exhausted.
	ErrRateLimited = errors.New("text model rate limit exceeded")
)

// Model is the generative text collaborator.
type Model interface {
	// GenerateOutline asks for a JSON array of section titles for the
	// subject and parses it. An unparseable or empty answer is an error.
	GenerateOutline(ctx context.Context, subject string) ([]string, error)
	// NewSession opens an independent conversational context. Each script
	// generation owns exactly one session; nothing is shared between them.
	NewSession() Session
}

// Session is a stateful chat handle. Calls are sequential: each request
// sees the model's prior answers in this session as context.
type Session interface {
	GenerateSection(ctx context.Context, prompt string) (string, error)
}

// CleanJSON strips markdown code fences the model tends to wrap JSON in.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
