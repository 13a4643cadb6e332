package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeGeneratePodcast runs the full pipeline: script, then audio.
	TypeGeneratePodcast = "podcast:generate"
	// TypeGenerateAudio re-runs just the audio stage from the stored
	// script, used when a fetch finds the final audio missing.
	TypeGenerateAudio = "podcast:audio"
	// TypeSweepSegments removes per-line segments left behind by
	// finished or vanished podcasts.
	TypeSweepSegments = "segments:sweep"
)

func NewSweepSegmentsTask() *asynq.Task {
	return asynq.NewTask(TypeSweepSegments, nil)
}

type GeneratePodcastTaskPayload struct {
	PodcastID string
	UserID    string
	Subject   string
}

func NewGeneratePodcastTask(podcastID, userID, subject string) (*asynq.Task, error) {
	payload, err := json.Marshal(GeneratePodcastTaskPayload{
		PodcastID: podcastID,
		UserID:    userID,
		Subject:   subject,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGeneratePodcast, payload), nil
}

type GenerateAudioTaskPayload struct {
	PodcastID string
	UserID    string
}

func NewGenerateAudioTask(podcastID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerateAudioTaskPayload{
		PodcastID: podcastID,
		UserID:    userID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateAudio, payload), nil
}
