package models

import "time"

// Lead is a visitor's submitted contact information.
// Leads are write-once; only the synced flag is ever updated.
type Lead struct {
	ID         string            `json:"id"`
	PopupID    string            `json:"popup_id"`
	PopupTitle string            `json:"popup_title,omitempty"` // joined field
	Email      string            `json:"email"`
	Name       string            `json:"name,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	FormData   map[string]string `json:"form_data,omitempty"`
	Synced     bool              `json:"synced"`
	CreatedAt  time.Time         `json:"created_at"`
}

// LeadListFilter for filtering leads
type LeadListFilter struct {
	PopupID string
	Synced  *bool
	Search  string
	Limit   int
	Offset  int
}
