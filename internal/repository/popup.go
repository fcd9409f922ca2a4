package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadpop/leadpop/internal/models"
)

type PopupRepository struct {
	db *sql.DB
}

func NewPopupRepository(db *sql.DB) *PopupRepository {
	return &PopupRepository{db: db}
}

// Create creates a new popup
func (r *PopupRepository) Create(p *models.Popup) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = models.StatusPublished
	}

	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("failed to encode popup config: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO popups (id, title, status, config, impressions, conversions, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		p.ID, p.Title, p.Status, string(cfg), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create popup: %w", err)
	}
	return nil
}

// GetByID returns a popup by ID
func (r *PopupRepository) GetByID(id string) (*models.Popup, error) {
	p := &models.Popup{}
	var cfg string
	err := r.db.QueryRow(`
		SELECT id, title, status, config, impressions, conversions, created_at, updated_at
		FROM popups WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Status, &cfg, &p.Impressions, &p.Conversions, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// An undecodable config is treated the same as a missing popup
	if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
		return nil, nil
	}
	return p, nil
}

// List returns popups with optional filtering
func (r *PopupRepository) List(filter models.PopupListFilter) ([]models.PopupWithStats, int, error) {
	// Count total
	countQuery := "SELECT COUNT(*) FROM popups WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		countQuery += " AND title LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, title, status, config, impressions, conversions, created_at, updated_at
		FROM popups WHERE 1=1`

	args = []any{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += " AND title LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}

	query += " ORDER BY updated_at DESC"

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

	popups := []models.PopupWithStats{}
	for rows.Next() {
		var p models.PopupWithStats
		var cfg string
		err := rows.Scan(&p.ID, &p.Title, &p.Status, &cfg, &p.Impressions, &p.Conversions, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
			return nil, 0, fmt.Errorf("failed to decode popup config: %w", err)
		}
		p.ConversionRate = p.Popup.ConversionRate()
		popups = append(popups, p)
	}

	return popups, total, nil
}

// ListPublished returns all published popups
func (r *PopupRepository) ListPublished() ([]models.Popup, error) {
	rows, err := r.db.Query(`
		SELECT id, title, status, config, impressions, conversions, created_at, updated_at
		FROM popups WHERE status = ? ORDER BY created_at`, models.StatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	popups := []models.Popup{}
	for rows.Next() {
		var p models.Popup
		var cfg string
		err := rows.Scan(&p.ID, &p.Title, &p.Status, &cfg, &p.Impressions, &p.Conversions, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
			return nil, fmt.Errorf("failed to decode popup config: %w", err)
		}
		popups = append(popups, p)
	}

	return popups, nil
}

// Update updates a popup's title, status and config
func (r *PopupRepository) Update(p *models.Popup) error {
	p.UpdatedAt = time.Now()

	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("failed to encode popup config: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE popups SET title = ?, status = ?, config = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Status, string(cfg), p.UpdatedAt, p.ID,
	)
	return err
}

// Delete deletes a popup
func (r *PopupRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM popups WHERE id = ?", id)
	return err
}

// IncrementImpressions atomically bumps the impression counter.
// The increment happens in SQL so concurrent calls never lose updates.
func (r *PopupRepository) IncrementImpressions(id string) error {
	_, err := r.db.Exec("UPDATE popups SET impressions = impressions + 1 WHERE id = ?", id)
	return err
}

// IncrementConversions atomically bumps the conversion counter
func (r *PopupRepository) IncrementConversions(id string) error {
	_, err := r.db.Exec("UPDATE popups SET conversions = conversions + 1 WHERE id = ?", id)
	return err
}
