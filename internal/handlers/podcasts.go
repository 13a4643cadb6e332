package handlers

import (
	"errors"
	"net/http"

	"podai/internal/blob"
	"podai/internal/models"
	"podai/internal/pipeline"
	"podai/internal/store"
	"podai/pkg/tasks"
)

type generatePodcastRequest struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// GeneratePodcast admits a generation request and returns as soon as the
// podcast record exists; the caller polls status from there.
func (h *Handlers) GeneratePodcast(w http.ResponseWriter, r *http.Request) {
	var body generatePodcastRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.UserID == "" || body.Subject == "" {
		http.Error(w, "user_id and subject are required", http.StatusBadRequest)
		return
	}

	result, err := h.orchestrator.GeneratePodcast(r.Context(), body.UserID, body.Subject, body.Name)
	if err != nil {
		if errors.Is(err, pipeline.ErrAdmissionDenied) {
			http.Error(w, "Not enough tokens", http.StatusForbidden)
			return
		}
		h.log.Error().Err(err).Str("user_id", body.UserID).Msg("failed to admit generation")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"podcast_id": result.PodcastID,
		"username":   result.Username,
	})
}

type podcastRequest struct {
	UserID    string `json:"user_id"`
	PodcastID string `json:"podcast_id"`
}

// GetPodcastStatus reports the podcast's pipeline status.
func (h *Handlers) GetPodcastStatus(w http.ResponseWriter, r *http.Request) {
	var body podcastRequest
	if !decodeBody(w, r, &body) {
		return
	}

	podcast, err := h.store.GetPodcast(r.Context(), body.UserID, body.PodcastID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Podcast not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": podcast.Status})
}

// GetAudio streams the final audio. When the blob is missing but a script
// is stored, the audio stage is re-triggered in the background and the
// caller gets a 404 to retry later.
func (h *Handlers) GetAudio(w http.ResponseWriter, r *http.Request) {
	var body podcastRequest
	if !decodeBody(w, r, &body) {
		return
	}

	podcast, err := h.store.GetPodcast(r.Context(), body.UserID, body.PodcastID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Podcast not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := h.blobs.Get(r.Context(), blob.FinalAudioKey(podcast.ID))
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			h.maybeRegenerateAudio(podcast)
			http.Error(w, "Audio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("podcast_id", podcast.ID).Msg("failed to load audio")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	_, _ = w.Write(data)
}

// maybeRegenerateAudio enqueues the audio-only stage when the podcast has
// a stored script to rebuild from.
func (h *Handlers) maybeRegenerateAudio(podcast models.Podcast) {
	if !podcast.HasScript() {
		return
	}
	task, err := tasks.NewGenerateAudioTask(podcast.ID, podcast.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("podcast_id", podcast.ID).Msg("failed to create audio task")
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		h.log.Error().Err(err).Str("podcast_id", podcast.ID).Msg("failed to enqueue audio task")
		return
	}
	h.log.Info().Str("podcast_id", podcast.ID).Msg("audio missing, regeneration enqueued")
}

type listRequest struct {
	UserID  string `json:"user_id"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// ListPodcasts returns a page of the user's podcasts, newest first.
func (h *Handlers) ListPodcasts(w http.ResponseWriter, r *http.Request) {
	var body listRequest
	if !decodeBody(w, r, &body) {
		return
	}

	podcasts, err := h.store.ListByUser(r.Context(), body.UserID, body.Page, body.PerPage)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, podcasts)
}

// ListPodcastsByLikes returns a page ordered by like count.
func (h *Handlers) ListPodcastsByLikes(w http.ResponseWriter, r *http.Request) {
	var body listRequest
	if !decodeBody(w, r, &body) {
		return
	}

	podcasts, err := h.store.ListByLikes(r.Context(), body.UserID, body.Page, body.PerPage)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, podcasts)
}

// LikePodcast records a like.
func (h *Handlers) LikePodcast(w http.ResponseWriter, r *http.Request) {
	var body podcastRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.store.LikePodcast(r.Context(), body.UserID, body.PodcastID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Podcast liked successfully"})
}

// UnlikePodcast removes a like.
func (h *Handlers) UnlikePodcast(w http.ResponseWriter, r *http.Request) {
	var body podcastRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.store.UnlikePodcast(r.Context(), body.UserID, body.PodcastID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Podcast unliked successfully"})
}

type createUserRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// CreateUser registers or refreshes a user.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.UserID == "" || body.Username == "" {
		http.Error(w, "user_id and username are required", http.StatusBadRequest)
		return
	}
	if _, err := h.store.UpsertUser(r.Context(), body.UserID, body.Username); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User created"})
}

type userRequest struct {
	UserID string `json:"user_id"`
}

// GetUserInfo returns the user's profile and token balance.
func (h *Handlers) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	var body userRequest
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.store.GetUser(r.Context(), body.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"tokens":   user.Tokens,
		"rss_uuid": user.RSSUUID,
	})
}
