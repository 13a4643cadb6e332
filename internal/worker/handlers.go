package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"podai/internal/blob"
	"podai/internal/pipeline"
	"podai/internal/store"
	"podai/pkg/tasks"
)

// TaskHandler binds queue tasks to the pipeline orchestrator.
type TaskHandler struct {
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	blobs        blob.Store
	log          zerolog.Logger
}

func NewTaskHandler(orchestrator *pipeline.Orchestrator, st *store.Store, blobs blob.Store, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{orchestrator: orchestrator, store: st, blobs: blobs, log: log}
}

// HandleGeneratePodcastTask runs the full pipeline for one podcast.
// Fatal generation failures have already been recorded as error status,
// so they are marked SkipRetry; anything else is an infrastructure
// problem worth retrying.
func (h *TaskHandler) HandleGeneratePodcastTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.GeneratePodcastTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	h.log.Info().Str("podcast_id", p.PodcastID).Str("subject", p.Subject).Msg("processing generation task")

	if err := h.orchestrator.Run(ctx, p.PodcastID, p.UserID, p.Subject); err != nil {
		if errors.Is(err, pipeline.ErrGenerationFailed) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// HandleGenerateAudioTask re-runs the audio stage from stored metadata.
func (h *TaskHandler) HandleGenerateAudioTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.GenerateAudioTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	h.log.Info().Str("podcast_id", p.PodcastID).Msg("processing audio regeneration task")

	if err := h.orchestrator.RunAudio(ctx, p.PodcastID, p.UserID); err != nil {
		if errors.Is(err, pipeline.ErrGenerationFailed) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
