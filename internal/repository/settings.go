package repository

import (
	"database/sql"
	"time"
)

// Setting keys managed at runtime
const (
	SettingWebhookEnabled = "webhook_enabled"
	SettingWebhookURL     = "webhook_url"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns a setting value
func (r *SettingsRepository) GetSetting(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (r *SettingsRepository) SetSetting(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// WebhookTarget returns the runtime webhook configuration.
// An empty URL or disabled flag means leads are not forwarded.
func (r *SettingsRepository) WebhookTarget() (enabled bool, url string, err error) {
	v, err := r.GetSetting(SettingWebhookEnabled)
	if err != nil {
		return false, "", err
	}
	url, err = r.GetSetting(SettingWebhookURL)
	if err != nil {
		return false, "", err
	}
	return v == "1" || v == "true", url, nil
}
