package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leadpop/leadpop/internal/db"
	"github.com/leadpop/leadpop/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// A named in-memory database, shared across the pooled connections of
	// this test but isolated from other tests.
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

	return conn
}

func createTestPopup(t *testing.T, conn *sql.DB) *models.Popup {
	t.Helper()

	repo := NewPopupRepository(conn)
	p := &models.Popup{
		Title:  "Newsletter Signup",
		Status: models.StatusPublished,
		Config: models.PopupConfig{
			Design: models.DesignConfig{
				Title:       "Join our newsletter",
				ButtonText:  "Subscribe",
				ButtonColor: "#0073aa",
			},
			Fields: []models.Field{
				{Type: models.FieldEmail, Name: "email", Label: "Email", Required: true},
			},
			Triggers: models.TriggerConfig{
				PageTargeting: models.TargetAll,
				TimeDelay:     5,
				ShowOnce:      true,
			},
			ThankYou: models.ThankYou{Message: "Thanks for subscribing!"},
		},
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}
