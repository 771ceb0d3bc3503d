package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Om-Prakash-Verma/new-flix/config"
)

type fakeClearer struct {
	cleared int
}

func (f *fakeClearer) ClearCache() error {
	f.cleared++
	return nil
}

func newSettingsFixture(t *testing.T, apiKey string) (*SettingsHandler, *fakeClearer, *config.Manager) {
	t.Helper()
	m := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	settings := config.DefaultSettings()
	settings.TMDB.APIKey = apiKey
	if err := m.Save(settings); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clearer := &fakeClearer{}
	return NewSettingsHandler(m, clearer), clearer, m
}

func TestSettingsGetMasksAPIKey(t *testing.T) {
	h, _, _ := newSettingsFixture(t, "abcdef123456")

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got config.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TMDB.APIKey != "****3456" {
		t.Errorf("api key not masked: %q", got.TMDB.APIKey)
	}
}

func TestSettingsUpdateKeyChangeClearsCache(t *testing.T) {
	h, clearer, m := newSettingsFixture(t, "oldkey123456")

	update := config.DefaultSettings()
	update.TMDB.APIKey = "newkey987654"
	body, _ := json.Marshal(update)

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if clearer.cleared != 1 {
		t.Errorf("expected cache clear on key change, got %d", clearer.cleared)
	}
	saved, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.TMDB.APIKey != "newkey987654" {
		t.Errorf("key not persisted: %q", saved.TMDB.APIKey)
	}
}

func TestSettingsUpdateMaskedKeyKeepsStored(t *testing.T) {
	h, clearer, m := newSettingsFixture(t, "oldkey123456")

	update := config.DefaultSettings()
	update.TMDB.APIKey = "****3456" // masked value echoed back by the UI
	update.Server.Port = 9000
	body, _ := json.Marshal(update)

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if clearer.cleared != 0 {
		t.Errorf("masked key must not count as a key change")
	}
	saved, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.TMDB.APIKey != "oldkey123456" || saved.Server.Port != 9000 {
		t.Errorf("unexpected saved settings: %+v", saved)
	}
}

func TestSettingsUpdateBadBody(t *testing.T) {
	h, _, _ := newSettingsFixture(t, "key")

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte("{"))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
