package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"podai/internal/blob"
	"podai/internal/config"
	"podai/internal/handlers"
	"podai/internal/middleware"
	"podai/internal/pipeline"
	"podai/internal/store"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "server").Logger()

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

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	orchestrator := pipeline.NewAdmitter(st, client, log)
	h := handlers.New(st, blobs, orchestrator, client, cfg.BaseURL, log)

	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(5), 10)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware)
	api.HandleFunc("/generate_podcast", h.GeneratePodcast).Methods(http.MethodPost)
	api.HandleFunc("/get_podcast_status", h.GetPodcastStatus).Methods(http.MethodPost)
	api.HandleFunc("/get_audio", h.GetAudio).Methods(http.MethodPost)
	api.HandleFunc("/podcasts", h.ListPodcasts).Methods(http.MethodPost)
	api.HandleFunc("/podcasts_by_likes", h.ListPodcastsByLikes).Methods(http.MethodPost)
	api.HandleFunc("/like_podcast", h.LikePodcast).Methods(http.MethodPost)
	api.HandleFunc("/unlike_podcast", h.UnlikePodcast).Methods(http.MethodPost)
	api.HandleFunc("/create_user", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/get_user_info", h.GetUserInfo).Methods(http.MethodPost)

	r.HandleFunc("/rss/{rss_uuid}", h.GetRSSFeed).Methods(http.MethodGet)
	r.HandleFunc("/audio/{user_id}/{podcast_id}.wav", h.ServeAudio).Methods(http.MethodGet)

	log.Info().Str("port", cfg.Port).Str("commit", CommitSHA).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
