package main

import (
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"podai/internal/config"
	"podai/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "scheduler").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register("@every 1h", tasks.NewSweepSegmentsTask()); err != nil {
		log.Fatal().Err(err).Msg("could not register sweep task")
	}

	log.Info().Str("commit", CommitSHA).Msg("scheduler starting")
	if err := scheduler.Run(); err != nil {
		log.Fatal().Err(err).Msg("could not run scheduler")
	}
}
