package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadpop/leadpop/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Insert creates a new lead. Leads always start unsynced.
func (r *LeadRepository) Insert(l *models.Lead) error {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now()
	l.Synced = false

	formData := "{}"
	if len(l.FormData) > 0 {
		data, err := json.Marshal(l.FormData)
		if err != nil {
			return fmt.Errorf("failed to encode form data: %w", err)
		}
		formData = string(data)
	}

	_, err := r.db.Exec(`
		INSERT INTO leads (id, popup_id, email, name, phone, form_data, synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		l.ID, l.PopupID, l.Email, l.Name, l.Phone, formData, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// GetByID returns a lead by ID
func (r *LeadRepository) GetByID(id string) (*models.Lead, error) {
	l := &models.Lead{}
	var name, phone, formData sql.NullString
	err := r.db.QueryRow(`
		SELECT id, popup_id, email, name, phone, form_data, synced, created_at
		FROM leads WHERE id = ?`, id,
	).Scan(&l.ID, &l.PopupID, &l.Email, &name, &phone, &formData, &l.Synced, &l.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Name = name.String
	l.Phone = phone.String
	if formData.Valid && formData.String != "" {
		if err := json.Unmarshal([]byte(formData.String), &l.FormData); err != nil {
			return nil, fmt.Errorf("failed to decode form data: %w", err)
		}
	}
	return l, nil
}

// List returns leads with optional filtering, newest first
func (r *LeadRepository) List(filter models.LeadListFilter) ([]models.Lead, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.PopupID != "" {
		where += " AND l.popup_id = ?"
		args = append(args, filter.PopupID)
	}
	if filter.Synced != nil {
		where += " AND l.synced = ?"
		args = append(args, *filter.Synced)
	}
	if filter.Search != "" {
		where += " AND (l.email LIKE ? OR l.name LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM leads l"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT l.id, l.popup_id, COALESCE(p.title, '') as popup_title, l.email,
			COALESCE(l.name, '') as name, COALESCE(l.phone, '') as phone,
			COALESCE(l.form_data, '') as form_data, l.synced, l.created_at
		FROM leads l
		LEFT JOIN popups p ON l.popup_id = p.id` + where + " ORDER BY l.created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		var formData string
		err := rows.Scan(&l.ID, &l.PopupID, &l.PopupTitle, &l.Email, &l.Name, &l.Phone, &formData, &l.Synced, &l.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		if formData != "" {
			if err := json.Unmarshal([]byte(formData), &l.FormData); err != nil {
				return nil, 0, fmt.Errorf("failed to decode form data: %w", err)
			}
		}
		leads = append(leads, l)
	}

	return leads, total, nil
}

// MarkSynced flips the synced flag on a lead
func (r *LeadRepository) MarkSynced(id string) error {
	result, err := r.db.Exec("UPDATE leads SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("lead %s not found", id)
	}
	return nil
}

// DeleteOlderThan removes leads created before the cutoff, returning the count
func (r *LeadRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM leads WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
