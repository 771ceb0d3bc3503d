package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Om-Prakash-Verma/new-flix/models"
	"github.com/Om-Prakash-Verma/new-flix/services/embed"
)

type fakeResolver struct {
	session models.PlaybackSession
	err     error

	lastTarget   models.PlaybackTarget
	lastSession  string
	lastProvider string
	closed       []string
}

func (f *fakeResolver) StartPlayback(_ context.Context, target models.PlaybackTarget) (models.PlaybackSession, error) {
	f.lastTarget = target
	return f.session, f.err
}

func (f *fakeResolver) Session(sessionID string) (models.PlaybackSession, error) {
	f.lastSession = sessionID
	return f.session, f.err
}

func (f *fakeResolver) ReportFailure(_ context.Context, sessionID string) (models.PlaybackSession, error) {
	f.lastSession = sessionID
	return f.session, f.err
}

func (f *fakeResolver) SelectProvider(_ context.Context, sessionID, providerName string) (models.PlaybackSession, error) {
	f.lastSession = sessionID
	f.lastProvider = providerName
	return f.session, f.err
}

func (f *fakeResolver) CloseSession(sessionID string) error {
	f.closed = append(f.closed, sessionID)
	return f.err
}

func (f *fakeResolver) Providers() []string {
	return []string{"Alpha", "Bravo"}
}

func playbackRouter(f *fakeResolver) *mux.Router {
	h := NewPlaybackHandler(f)
	r := mux.NewRouter()
	r.HandleFunc("/api/playback/session", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/session/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/playback/session/{id}", h.Close).Methods(http.MethodDelete)
	r.HandleFunc("/api/playback/session/{id}/failure", h.ReportFailure).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/session/{id}/server", h.SelectProvider).Methods(http.MethodPost)
	r.HandleFunc("/api/playback/providers", h.Providers).Methods(http.MethodGet)
	return r
}

func TestPlaybackCreate(t *testing.T) {
	fake := &fakeResolver{session: models.PlaybackSession{
		ID:       "abc",
		Provider: "Alpha",
		Status:   models.PlaybackStatusReady,
		EmbedURL: "https://alpha.test/movie/550",
	}}
	router := playbackRouter(fake)

	body, _ := json.Marshal(models.PlaybackTarget{TMDBID: "550", Kind: models.MediaKindMovie})
	req := httptest.NewRequest(http.MethodPost, "/api/playback/session", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.lastTarget.TMDBID != "550" {
		t.Errorf("target not forwarded: %+v", fake.lastTarget)
	}

	var got models.PlaybackSession
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "abc" || got.EmbedURL == "" {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestPlaybackCreateInvalidTarget(t *testing.T) {
	fake := &fakeResolver{err: embed.ErrInvalidTarget}
	router := playbackRouter(fake)

	req := httptest.NewRequest(http.MethodPost, "/api/playback/session", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPlaybackCreateBadJSON(t *testing.T) {
	router := playbackRouter(&fakeResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/playback/session", bytes.NewReader([]byte(`{`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPlaybackFailureRoutesSessionID(t *testing.T) {
	fake := &fakeResolver{session: models.PlaybackSession{ID: "abc", ProviderIndex: 1}}
	router := playbackRouter(fake)

	req := httptest.NewRequest(http.MethodPost, "/api/playback/session/abc/failure", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.lastSession != "abc" {
		t.Errorf("session id not forwarded, got %q", fake.lastSession)
	}
}

func TestPlaybackGetMissingSession(t *testing.T) {
	fake := &fakeResolver{err: embed.ErrSessionNotFound}
	router := playbackRouter(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/playback/session/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPlaybackSelectProvider(t *testing.T) {
	fake := &fakeResolver{session: models.PlaybackSession{ID: "abc", Provider: "Bravo"}}
	router := playbackRouter(fake)

	req := httptest.NewRequest(http.MethodPost, "/api/playback/session/abc/server",
		bytes.NewReader([]byte(`{"provider":"Bravo"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.lastProvider != "Bravo" {
		t.Errorf("provider not forwarded, got %q", fake.lastProvider)
	}
}

func TestPlaybackSelectProviderRequiresName(t *testing.T) {
	router := playbackRouter(&fakeResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/playback/session/abc/server",
		bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPlaybackClose(t *testing.T) {
	fake := &fakeResolver{}
	router := playbackRouter(fake)

	req := httptest.NewRequest(http.MethodDelete, "/api/playback/session/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(fake.closed) != 1 || fake.closed[0] != "abc" {
		t.Errorf("close not forwarded: %v", fake.closed)
	}
}

func TestPlaybackProviders(t *testing.T) {
	router := playbackRouter(&fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/playback/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Providers) != 2 {
		t.Errorf("unexpected providers %v", got.Providers)
	}
}
