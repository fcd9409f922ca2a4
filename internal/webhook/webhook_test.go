package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/models"
)

type staticSource struct {
	enabled bool
	url     string
}

func (s *staticSource) WebhookTarget() (bool, string, error) {
	return s.enabled, s.url, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLead() *models.Lead {
	return &models.Lead{
		ID:        "lead-1",
		PopupID:   "popup-1",
		Email:     "a@b.com",
		Name:      "Alice",
		Phone:     "+1555000",
		FormData:  map[string]string{"company": "Acme"},
		CreatedAt: time.Now(),
	}
}

func TestDispatcherForward(t *testing.T) {
	var mu sync.Mutex
	var received []Payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode error = %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer srv.Close()

	d := New(config.WebhookConfig{Enabled: true, URL: srv.URL}, nil, testLogger())
	d.Forward(testLead())
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received %d payloads, want 1", len(received))
	}
	p := received[0]
	if p.PopupID != "popup-1" || p.Email != "a@b.com" {
		t.Errorf("payload = %+v", p)
	}
	if p.FormData["company"] != "Acme" {
		t.Errorf("FormData = %+v, want company=Acme", p.FormData)
	}
}

func TestDispatcherDisabled(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	d := New(config.WebhookConfig{Enabled: false, URL: srv.URL}, nil, testLogger())
	d.Forward(testLead())
	d.Close()

	if calls != 0 {
		t.Errorf("calls = %d, want 0 when disabled", calls)
	}
}

func TestDispatcherSettingsOverrideConfig(t *testing.T) {
	var mu sync.Mutex
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer srv.Close()

	// Config disabled, runtime settings point at the server
	d := New(config.WebhookConfig{Enabled: false}, &staticSource{enabled: true, url: srv.URL}, testLogger())
	d.Forward(testLead())
	d.Close()

	mu.Lock()
	if calls != 1 {
		t.Errorf("calls = %d, want 1 via settings override", calls)
	}
	mu.Unlock()

	// Settings disabled wins over an enabled config when a URL is set
	d = New(config.WebhookConfig{Enabled: true, URL: srv.URL}, &staticSource{enabled: false, url: srv.URL}, testLogger())
	d.Forward(testLead())
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("calls = %d, want still 1 after disabled settings", calls)
	}
}

func TestDispatcherServerErrorDoesNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Forward never returns an error; Close must not hang
	d := New(config.WebhookConfig{Enabled: true, URL: srv.URL}, nil, testLogger())
	d.Forward(testLead())
	d.Close()
}

func TestDispatcherUnreachableTarget(t *testing.T) {
	d := New(config.WebhookConfig{Enabled: true, URL: "http://127.0.0.1:1", Timeout: time.Second}, nil, testLogger())
	d.Forward(testLead())
	d.Close()
}
