package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"podai/internal/blob"
	"podai/internal/feed"
	"podai/internal/store"
)

// GetRSSFeed serves the user's feed, looked up by the opaque rss_uuid
// so the URL grants access to nothing else.
func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rssUUID := vars["rss_uuid"]

	user, err := h.store.GetUserByRSSUUID(r.Context(), rssUUID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	podcasts, err := h.store.ListReadyByUser(r.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to list podcasts for feed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.GenerateRSS(user, podcasts, h.baseURL, r)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to generate RSS")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}

// ServeAudio streams podcast audio for feed enclosures. Ownership is
// encoded in the URL path so podcast players can fetch without a body.
func (h *Handlers) ServeAudio(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]
	podcastID := vars["podcast_id"]

	podcast, err := h.store.GetPodcast(r.Context(), userID, podcastID)
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
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	_, _ = w.Write(data)
}
