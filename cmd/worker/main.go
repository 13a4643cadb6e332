package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"podai/internal/assembler"
	"podai/internal/blob"
	"podai/internal/config"
	"podai/internal/pipeline"
	"podai/internal/scriptwriter"
	"podai/internal/store"
	"podai/internal/synth"
	"podai/internal/textmodel"
	"podai/internal/worker"
	"podai/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	st, err := store.New(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.Close()

	blobs, err := blob.NewMinioStore(context.Background(), blob.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object storage")
	}

	model, err := textmodel.NewClient(textmodel.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		ModelName: cfg.ModelName,
		Timeout:   cfg.ModelTimeout,
		Attempts:  cfg.ModelMaxAttempts,
		Backoff:   cfg.RateLimitBackoff,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create text model client")
	}

	writer := scriptwriter.New(model, log)
	synthesizer := synth.NewHTTPSynthesizer(cfg.TTSBaseURL, cfg.TTSTimeout)
	asm := assembler.New(synthesizer, blobs, assembler.Config{
		MaleVoiceID:   cfg.MaleVoiceID,
		FemaleVoiceID: cfg.FemaleVoiceID,
		IntroBedDir:   cfg.IntroBedDir,
		Workers:       cfg.SynthWorkers,
	}, log)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	orchestrator := pipeline.New(st, writer, asm, client, cfg.PipelineTimeout, log)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// Generation holds an LLM session and a synthesis pool per
			// task, so keep concurrency low.
			Concurrency: 2,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 1 * time.Minute
				maxDelay := 30 * time.Minute

				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Info().Str("task", task.Type()).Int("failures", n+1).Dur("delay", delay).Msg("task retry scheduled")
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(orchestrator, st, blobs, log)

	mux.HandleFunc(tasks.TypeGeneratePodcast, taskHandler.HandleGeneratePodcastTask)
	mux.HandleFunc(tasks.TypeGenerateAudio, taskHandler.HandleGenerateAudioTask)
	mux.HandleFunc(tasks.TypeSweepSegments, taskHandler.HandleSweepSegmentsTask)

	log.Info().Str("commit", CommitSHA).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("could not run worker")
	}
}
