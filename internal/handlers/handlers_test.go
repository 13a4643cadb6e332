package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"podai/internal/blob"
	"podai/internal/models"
	"podai/internal/pipeline"
	"podai/internal/test"
	"podai/pkg/tasks"
)

type fixture struct {
	handlers *Handlers
	mock     sqlmock.Sqlmock
	blobs    *blob.MemoryStore
	enqueuer *test.MockTaskEnqueuer
}

func newFixture(t *testing.T) *fixture {
	st, mock := test.NewMockStore(t)
	blobs := blob.NewMemoryStore()
	enqueuer := &test.MockTaskEnqueuer{}
	orchestrator := pipeline.NewAdmitter(st, enqueuer, zerolog.Nop())
	return &fixture{
		handlers: New(st, blobs, orchestrator, enqueuer, "https://pods.example.com", zerolog.Nop()),
		mock:     mock,
		blobs:    blobs,
		enqueuer: enqueuer,
	}
}

func postJSON(handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func podcastRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "name", "subject", "status", "script", "audio_key",
		"duration_seconds", "created_at", "published_at", "like_count",
	})
}

func TestGeneratePodcast(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectExec(`UPDATE users SET tokens = tokens - 1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "tokens", "rss_uuid", "created_at", "updated_at"}).
			AddRow("user-1", "alice", 2, "feed-uuid", now, now))
	f.mock.ExpectQuery(`INSERT INTO podcasts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "subject", "status", "script", "audio_key", "duration_seconds", "created_at", "published_at"}).
			AddRow("pod-1", "user-1", "go", "go", models.StatusEmpty, nil, nil, nil, now, nil))

	rr := postJSON(f.handlers.GeneratePodcast, map[string]string{"user_id": "user-1", "subject": "go"})
	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pod-1", resp["podcast_id"])
	assert.Equal(t, "alice", resp["username"])
	assert.Len(t, f.enqueuer.EnqueuedTasks, 1)
}

func TestGeneratePodcastOutOfTokens(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`UPDATE users SET tokens = tokens - 1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rr := postJSON(f.handlers.GeneratePodcast, map[string]string{"user_id": "user-1", "subject": "go"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, f.enqueuer.EnqueuedTasks)
}

func TestGeneratePodcastMissingFields(t *testing.T) {
	f := newFixture(t)

	rr := postJSON(f.handlers.GeneratePodcast, map[string]string{"user_id": "user-1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPodcastStatus(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WithArgs("pod-1", "user-1").
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "go", "go", models.StatusScriptDone, nil, nil, nil, now, nil, 0))

	rr := postJSON(f.handlers.GetPodcastStatus, map[string]string{"user_id": "user-1", "podcast_id": "pod-1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), models.StatusScriptDone)
}

func TestGetPodcastStatusNotFound(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WithArgs("pod-1", "user-1").
		WillReturnRows(podcastRows())

	rr := postJSON(f.handlers.GetPodcastStatus, map[string]string{"user_id": "user-1", "podcast_id": "pod-1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetAudio(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "go", "go", models.StatusReady, nil, "podcasts/pod-1/audio.wav", 120, now, now, 0))

	audio := []byte("RIFF fake wav bytes")
	assert.NoError(t, f.blobs.Put(context.Background(), blob.FinalAudioKey("pod-1"), audio, "audio/wav"))

	rr := postJSON(f.handlers.GetAudio, map[string]string{"user_id": "user-1", "podcast_id": "pod-1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/wav", rr.Header().Get("Content-Type"))
	assert.Equal(t, audio, rr.Body.Bytes())
}

func TestGetAudioMissingTriggersRegeneration(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	script := `{"subject":"go","sections":[]}`

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "go", "go", models.StatusReady, script, "podcasts/pod-1/audio.wav", 120, now, now, 0))

	rr := postJSON(f.handlers.GetAudio, map[string]string{"user_id": "user-1", "podcast_id": "pod-1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Audio not found")

	// The audio stage is re-enqueued from the stored script.
	assert.Len(t, f.enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeGenerateAudio, f.enqueuer.EnqueuedTasks[0].Type())
}

func TestGetAudioMissingWithoutScript(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "go", "go", models.StatusEmpty, nil, nil, nil, now, nil, 0))

	rr := postJSON(f.handlers.GetAudio, map[string]string{"user_id": "user-1", "podcast_id": "pod-1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, f.enqueuer.EnqueuedTasks)
}

func TestGetUserInfo(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "tokens", "rss_uuid", "created_at", "updated_at"}).
			AddRow("user-1", "alice", 2, "feed-uuid", now, now))

	rr := postJSON(f.handlers.GetUserInfo, map[string]string{"user_id": "user-1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice")
	assert.Contains(t, rr.Body.String(), "feed-uuid")
}

func TestGetRSSFeed(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT \* FROM users WHERE rss_uuid = \$1`).
		WithArgs("feed-uuid").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "tokens", "rss_uuid", "created_at", "updated_at"}).
			AddRow("user-1", "alice", 2, "feed-uuid", now, now))
	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WithArgs("user-1", models.StatusReady).
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "Go Generics", "generics", models.StatusReady, nil, "podcasts/pod-1/audio.wav", 300, now, now, 0))

	router := mux.NewRouter()
	router.HandleFunc("/rss/{rss_uuid}", f.handlers.GetRSSFeed)

	req := httptest.NewRequest(http.MethodGet, "/rss/feed-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/rss+xml", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "Go Generics")
	assert.True(t, strings.Contains(body, "https://pods.example.com/audio/user-1/pod-1.wav"))
}

func TestServeAudio(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT (.+) FROM podcasts p`).
		WithArgs("pod-1", "user-1").
		WillReturnRows(podcastRows().
			AddRow("pod-1", "user-1", "go", "go", models.StatusReady, nil, "podcasts/pod-1/audio.wav", 120, now, now, 0))

	audio := []byte("RIFF fake wav bytes")
	assert.NoError(t, f.blobs.Put(context.Background(), blob.FinalAudioKey("pod-1"), audio, "audio/wav"))

	router := mux.NewRouter()
	router.HandleFunc("/audio/{user_id}/{podcast_id}.wav", f.handlers.ServeAudio)

	req := httptest.NewRequest(http.MethodGet, "/audio/user-1/pod-1.wav", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, audio, rr.Body.Bytes())
}
