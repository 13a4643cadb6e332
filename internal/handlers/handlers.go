package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"podai/internal/blob"
	"podai/internal/pipeline"
	"podai/internal/store"
	"podai/pkg/tasks"
)

// Handlers carries the dependencies of the HTTP surface.
type Handlers struct {
	store        *store.Store
	blobs        blob.Store
	orchestrator *pipeline.Orchestrator
	asynqClient  tasks.TaskEnqueuer
	baseURL      string
	log          zerolog.Logger
}

func New(st *store.Store, blobs blob.Store, orchestrator *pipeline.Orchestrator, asynqClient tasks.TaskEnqueuer, baseURL string, log zerolog.Logger) *Handlers {
	return &Handlers{
		store:        st,
		blobs:        blobs,
		orchestrator: orchestrator,
		asynqClient:  asynqClient,
		baseURL:      baseURL,
		log:          log,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
