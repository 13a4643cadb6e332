// Package pipeline coordinates script generation, audio synthesis and
// status tracking for one podcast across the collaborating services.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"podai/internal/assembler"
	"podai/internal/models"
	"podai/internal/store"
	"podai/pkg/tasks"
)

var (
	// ErrAdmissionDenied means the user has no tokens left. Surfaced
	// synchronously; nothing is created.
	ErrAdmissionDenied = errors.New("no generation tokens remaining")
	// ErrGenerationFailed marks an unrecoverable pipeline failure whose
	// error status has already been recorded. Task handlers must not
	// retry it.
	ErrGenerationFailed = errors.New("podcast generation failed")
)

// ScriptWriter is the script stage.
type ScriptWriter interface {
	WriteScript(ctx context.Context, subject string) (models.Script, error)
}

// AudioAssembler is the audio stage.
type AudioAssembler interface {
	SynthesizeAndAssemble(ctx context.Context, podcastID string, script models.Script) (assembler.Result, error)
}

// Orchestrator is the top-level coordinator. The admission path runs in
// the serving process; Run and RunAudio execute in the worker.
type Orchestrator struct {
	store     *store.Store
	writer    ScriptWriter
	assembler AudioAssembler
	enqueuer  tasks.TaskEnqueuer
	deadline  time.Duration
	log       zerolog.Logger
}

func New(st *store.Store, writer ScriptWriter, asm AudioAssembler, enqueuer tasks.TaskEnqueuer, deadline time.Duration, log zerolog.Logger) *Orchestrator {
	if deadline <= 0 {
		deadline = 20 * time.Minute
	}
	return &Orchestrator{
		store:     st,
		writer:    writer,
		assembler: asm,
		enqueuer:  enqueuer,
		deadline:  deadline,
		log:       log,
	}
}

// NewAdmitter builds an orchestrator for the serving process, which only
// runs the admission path. The generation stages live in the worker.
func NewAdmitter(st *store.Store, enqueuer tasks.TaskEnqueuer, log zerolog.Logger) *Orchestrator {
	return New(st, nil, nil, enqueuer, 0, log)
}

// GenerateResult is returned to the caller as soon as the request is
// admitted; progress after that is observed by polling status.
type GenerateResult struct {
	PodcastID string
	Username  string
}

// GeneratePodcast admits the request, creates the podcast record and
// enqueues the background generation. It returns immediately: generation
// can take minutes and the caller only paid for a cheap bookkeeping step.
func (o *Orchestrator) GeneratePodcast(ctx context.Context, userID, subject, name string) (GenerateResult, error) {
	if name == "" {
		name = subject
	}

	ok, err := o.store.TryConsumeToken(ctx, userID)
	if err != nil {
		// Storage unreachable is not "no tokens"; the caller may retry.
		return GenerateResult{}, fmt.Errorf("admission check failed: %w", err)
	}
	if !ok {
		return GenerateResult{}, ErrAdmissionDenied
	}

	user, err := o.store.GetUser(ctx, userID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	podcast, err := o.store.CreatePodcast(ctx, userID, name, subject)
	if err != nil {
		return GenerateResult{}, err
	}

	task, err := tasks.NewGeneratePodcastTask(podcast.ID, userID, subject)
	if err != nil {
		return GenerateResult{}, err
	}
	if _, err := o.enqueuer.Enqueue(task); err != nil {
		o.recordError(podcast.ID)
		return GenerateResult{}, fmt.Errorf("failed to enqueue generation: %w", err)
	}

	o.log.Info().Str("podcast_id", podcast.ID).Str("user_id", userID).Str("subject", subject).Msg("generation admitted")
	return GenerateResult{PodcastID: podcast.ID, Username: user.Username}, nil
}

// Run executes both stages for one podcast under the end-to-end deadline.
// Fatal failures are recorded as error status and returned wrapped in
// ErrGenerationFailed; infrastructure errors are returned plain so the
// task queue retries them.
func (o *Orchestrator) Run(ctx context.Context, podcastID, userID, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	start := time.Now()

	// A redelivered task resumes where the last attempt left off. The
	// script stage is the expensive one; once a script is persisted it is
	// never regenerated for the same podcast.
	status, err := o.store.GetStatus(ctx, podcastID)
	if err != nil {
		return fmt.Errorf("failed to load podcast status: %w", err)
	}
	switch status {
	case models.StatusReady, models.StatusError:
		o.log.Info().Str("podcast_id", podcastID).Str("status", status).Msg("podcast already terminal, nothing to do")
		return nil
	case models.StatusScriptDone:
		o.log.Info().Str("podcast_id", podcastID).Msg("script already persisted, resuming at audio stage")
		return o.runStoredAudio(ctx, podcastID, userID)
	}

	script, err := o.writer.WriteScript(ctx, subject)
	if err != nil {
		return o.fail(podcastID, fmt.Errorf("script stage: %w", err))
	}

	// Write through before the next stage starts, so observed status is
	// never stale by more than one in-flight stage.
	if err := o.store.SetScript(ctx, podcastID, script); err != nil {
		return fmt.Errorf("failed to persist script: %w", err)
	}
	o.log.Info().Str("podcast_id", podcastID).Int("sections", len(script.Sections)).Msg("script stage done")

	if err := o.runAudioStage(ctx, podcastID, script); err != nil {
		return err
	}

	o.log.Info().Str("podcast_id", podcastID).Dur("elapsed", time.Since(start)).Msg("podcast generated")
	return nil
}

// RunAudio re-runs just the audio stage from the stored script, for the
// missing-audio fetch fallback.
func (o *Orchestrator) RunAudio(ctx context.Context, podcastID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	return o.runStoredAudio(ctx, podcastID, userID)
}

// runStoredAudio runs the audio stage from the persisted script.
func (o *Orchestrator) runStoredAudio(ctx context.Context, podcastID, userID string) error {
	podcast, err := o.store.GetPodcast(ctx, userID, podcastID)
	if err != nil {
		return fmt.Errorf("failed to load podcast: %w", err)
	}
	if !podcast.HasScript() {
		return o.fail(podcastID, errors.New("no script to regenerate audio from"))
	}

	var script models.Script
	if err := json.Unmarshal([]byte(*podcast.Script), &script); err != nil {
		return o.fail(podcastID, fmt.Errorf("stored script is unreadable: %w", err))
	}

	return o.runAudioStage(ctx, podcastID, script)
}

func (o *Orchestrator) runAudioStage(ctx context.Context, podcastID string, script models.Script) error {
	result, err := o.assembler.SynthesizeAndAssemble(ctx, podcastID, script)
	if err != nil {
		return o.fail(podcastID, fmt.Errorf("audio stage: %w", err))
	}

	if err := o.store.SetAudioReady(ctx, podcastID, result.AudioKey, result.DurationSeconds); err != nil {
		return fmt.Errorf("failed to persist audio reference: %w", err)
	}
	o.log.Info().Str("podcast_id", podcastID).
		Int("segments", result.Synthesized).
		Int("dropped", result.Dropped).
		Int("duration_s", result.DurationSeconds).
		Msg("audio stage done")
	return nil
}

// fail converts an internal failure into durable, observable state. The
// error write uses a fresh context: the pipeline deadline may be the very
// thing that expired.
func (o *Orchestrator) fail(podcastID string, cause error) error {
	o.log.Error().Err(cause).Str("podcast_id", podcastID).Msg("generation failed")
	o.recordError(podcastID)
	return fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
}

func (o *Orchestrator) recordError(podcastID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.SetError(ctx, podcastID); err != nil {
		o.log.Error().Err(err).Str("podcast_id", podcastID).Msg("failed to record error status")
	}
}
