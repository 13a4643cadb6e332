package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotExist is returned by Get when no object is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// Store is an opaque byte-blob store keyed by path-like strings. Final
// podcast audio and transient per-line segments both live here.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// FinalAudioKey is where a podcast's assembled audio lives. One artifact
// per podcast id, overwritten on regeneration.
func FinalAudioKey(podcastID string) string {
	return fmt.Sprintf("podcasts/%s/audio.wav", podcastID)
}

// SegmentPrefix holds a podcast's transient per-line clips.
func SegmentPrefix(podcastID string) string {
	return fmt.Sprintf("segments/%s/", podcastID)
}

// SegmentKey names one transient clip. The zero-padded sequence keeps
// lexical listing order consistent with numeric order for up to 9999
// lines; assembly still sorts numerically.
func SegmentKey(podcastID string, seq int) string {
	return fmt.Sprintf("%s%04d.wav", SegmentPrefix(podcastID), seq)
}
