package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/hibiken/asynq"

	"podai/internal/blob"
	"podai/internal/models"
	"podai/internal/store"
)

// HandleSweepSegmentsTask deletes per-line segments whose podcast no
// longer needs them. Segments are cleaned up after assembly, so anything
// found here belongs to a crashed run or a deleted podcast.
func (h *TaskHandler) HandleSweepSegmentsTask(ctx context.Context, t *asynq.Task) error {
	keys, err := h.blobs.List(ctx, "segments/")
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	swept := 0
	for _, key := range keys {
		rest := strings.TrimPrefix(key, "segments/")
		podcastID, _, ok := strings.Cut(rest, "/")
		if !ok || seen[podcastID] {
			continue
		}
		seen[podcastID] = true

		status, err := h.store.GetStatus(ctx, podcastID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Orphaned; fall through to delete.
		case err != nil:
			return err
		case status != models.StatusReady && status != models.StatusError:
			// Generation still in flight.
			continue
		}

		if err := h.blobs.DeletePrefix(ctx, blob.SegmentPrefix(podcastID)); err != nil {
			h.log.Error().Err(err).Str("podcast_id", podcastID).Msg("failed to sweep segments")
			continue
		}
		swept++
	}

	if swept > 0 {
		h.log.Info().Int("podcasts", swept).Msg("swept leftover segments")
	}
	return nil
}
