package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/db"
	"github.com/leadpop/leadpop/internal/delivery"
	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/repository"
)

const testAPIKey = "test-api-key"

type testServer struct {
	*Server
	conn   *sql.DB
	popups *repository.PopupRepository
	leads  *repository.LeadRepository
	users  *repository.UserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=1",
		strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	for _, m := range db.Migrations() {
		if _, err := conn.Exec(m); err != nil {
			t.Fatalf("migration failed: %v", err)
		}
	}

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8090"
	cfg.Auth.APIKey = testAPIKey
	cfg.Auth.SessionTTL = time.Hour

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	popups := repository.NewPopupRepository(conn)
	leads := repository.NewLeadRepository(conn)
	settings := repository.NewSettingsRepository(conn)
	users := repository.NewUserRepository(conn)

	svc := delivery.New(popups, leads, logger)

	return &testServer{
		Server: NewServer(cfg, svc, popups, leads, settings, users, logger),
		conn:   conn,
		popups: popups,
		leads:  leads,
		users:  users,
	}
}

// request performs an HTTP request against the router
func (ts *testServer) request(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAPIKey}
}

func (ts *testServer) createPopup(t *testing.T, status string, triggers models.TriggerConfig) *models.Popup {
	t.Helper()

	p := &models.Popup{
		Title:  "Newsletter Signup",
		Status: status,
		Config: models.PopupConfig{
			Design: models.DesignConfig{
				Title:      "Join our newsletter",
				ButtonText: "Subscribe",
			},
			Fields: []models.Field{
				{Type: models.FieldEmail, Name: "email", Label: "Email", Required: true},
			},
			Triggers: triggers,
			ThankYou: models.ThankYou{Message: "Thanks for subscribing!"},
		},
	}
	if err := ts.popups.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}

func (ts *testServer) createUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	u := &models.User{Email: email, PasswordHash: string(hash), Name: "Admin"}
	if err := ts.users.Create(u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return u
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assertStatus(t, w, status)
	resp := decodeJSON[ErrorResponse](t, w)
	if resp.Code != code {
		t.Errorf("error code = %q, want %q", resp.Code, code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodGet, "/health", nil, nil)
	assertStatus(t, w, http.StatusOK)

	resp := decodeJSON[HealthResponse](t, w)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version == "" {
		t.Error("version is empty")
	}
}
