package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven settings for both the server and the
// worker process.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	BaseURL   string `envconfig:"BASE_URL"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Text model settings.
	OpenAIAPIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	ModelName        string        `envconfig:"MODEL_NAME" default:"gpt-4o-mini"`
	ModelTimeout     time.Duration `envconfig:"MODEL_TIMEOUT" default:"2m"`
	ModelMaxAttempts int           `envconfig:"MODEL_MAX_ATTEMPTS" default:"3"`
	RateLimitBackoff time.Duration `envconfig:"RATE_LIMIT_BACKOFF" default:"30s"`

	// Speech synthesis settings.
	TTSBaseURL      string        `envconfig:"TTS_BASE_URL" default:"http://127.0.0.1:5000"`
	TTSTimeout      time.Duration `envconfig:"TTS_TIMEOUT" default:"1m"`
	SynthWorkers    int           `envconfig:"SYNTH_WORKERS" default:"4"`
	MaleVoiceID     string        `envconfig:"MALE_VOICE_ID" default:"male"`
	FemaleVoiceID   string        `envconfig:"FEMALE_VOICE_ID" default:"female"`
	IntroBedDir     string        `envconfig:"INTRO_BED_DIR" default:"audios"`
	PipelineTimeout time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"20m"`

	// Object storage settings.
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"127.0.0.1:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"podai"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
