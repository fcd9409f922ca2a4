// Package delivery implements the popup delivery and lead submission flow:
// config retrieval gated by visibility, lead validation and persistence,
// and impression/conversion recording.
package delivery

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/trigger"
	"github.com/leadpop/leadpop/internal/visibility"
)

// The service backs the trigger engine's impression recording
var _ trigger.ImpressionRecorder = (*Service)(nil)

// Event types accepted by RecordEvent
const (
	EventImpression = "impression"
	EventConversion = "conversion"
)

// PopupStore is the popup persistence the service depends on
type PopupStore interface {
	GetByID(id string) (*models.Popup, error)
	ListPublished() ([]models.Popup, error)
	IncrementImpressions(id string) error
	IncrementConversions(id string) error
}

// LeadStore persists leads
type LeadStore interface {
	Insert(l *models.Lead) error
}

// Forwarder pushes an accepted lead to an external system, asynchronously
// and best-effort. Implementations must never block the caller.
type Forwarder interface {
	Forward(l *models.Lead)
}

// Recorder observes delivery events for metrics
type Recorder interface {
	LeadAccepted(popupID string)
	EventRecorded(popupID, eventType string)
}

// Service is the Popup Delivery API
type Service struct {
	popups     PopupStore
	leads      LeadStore
	forwarders []Forwarder
	recorder   Recorder
	logger     *slog.Logger
}

func New(popups PopupStore, leads LeadStore, logger *slog.Logger) *Service {
	return &Service{
		popups: popups,
		leads:  leads,
		logger: logger.With("component", "delivery"),
	}
}

// AddForwarder registers a side-effect target for accepted leads
// (webhook dispatcher, mail notifier). Forwarders run after the lead and
// conversion are durably recorded.
func (s *Service) AddForwarder(f Forwarder) {
	s.forwarders = append(s.forwarders, f)
}

// SetRecorder attaches a metrics recorder
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// GetPopupConfig returns a popup for delivery to the given page.
// Fails with ErrNotFound, ErrNotPublished or ErrNotVisible.
func (s *Service) GetPopupConfig(id string, page visibility.PageContext) (*models.Popup, error) {
	popup, err := s.popups.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load popup: %w", err)
	}
	if popup == nil {
		return nil, ErrNotFound
	}
	if popup.Status != models.StatusPublished {
		return nil, ErrNotPublished
	}
	if !visibility.IsVisible(popup.Config.Triggers, page) {
		return nil, ErrNotVisible
	}
	return popup, nil
}

// ListVisible returns the published popups deliverable on the given page
func (s *Service) ListVisible(page visibility.PageContext) ([]models.Popup, error) {
	popups, err := s.popups.ListPublished()
	if err != nil {
		return nil, fmt.Errorf("failed to list popups: %w", err)
	}

	visible := []models.Popup{}
	for _, p := range popups {
		if visibility.IsVisible(p.Config.Triggers, page) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// SubmitRequest is a lead submission
type SubmitRequest struct {
	PopupID  string            `json:"popup_id"`
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	FormData map[string]string `json:"form_data,omitempty"`
}

// SubmitLead validates and stores a lead, records a conversion, and hands
// the lead to the registered forwarders. The lead insert and the conversion
// increment are sequenced before any side effect; a failed insert records
// nothing else.
func (s *Service) SubmitLead(req SubmitRequest) (*models.Lead, error) {
	popup, err := s.popups.GetByID(req.PopupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load popup: %w", err)
	}
	if popup == nil {
		return nil, ErrInvalidPopup
	}

	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	lead := &models.Lead{
		PopupID:  popup.ID,
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		FormData: req.FormData,
	}
	if err := s.leads.Insert(lead); err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}

	if err := s.popups.IncrementConversions(popup.ID); err != nil {
		// The lead is already stored; log and keep going
		s.logger.Error("failed to record conversion", "popup_id", popup.ID, "error", err)
	} else if s.recorder != nil {
		s.recorder.EventRecorded(popup.ID, EventConversion)
	}

	if s.recorder != nil {
		s.recorder.LeadAccepted(popup.ID)
	}

	for _, f := range s.forwarders {
		f.Forward(lead)
	}

	s.logger.Info("lead accepted", "lead_id", lead.ID, "popup_id", popup.ID)
	return lead, nil
}

// RecordEvent atomically increments the impression or conversion counter
func (s *Service) RecordEvent(popupID, eventType string) error {
	popup, err := s.popups.GetByID(popupID)
	if err != nil {
		return fmt.Errorf("failed to load popup: %w", err)
	}
	if popup == nil {
		return ErrInvalidPopup
	}

	switch eventType {
	case EventImpression:
		err = s.popups.IncrementImpressions(popup.ID)
	case EventConversion:
		err = s.popups.IncrementConversions(popup.ID)
	default:
		return ErrInvalidEvent
	}
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", eventType, err)
	}

	if s.recorder != nil {
		s.recorder.EventRecorded(popup.ID, eventType)
	}
	return nil
}

// RecordImpression records an impression, dropping the error. It lets the
// service stand in for the trigger engine's impression recorder, which is
// fire-and-forget.
func (s *Service) RecordImpression(popupID string) {
	if err := s.RecordEvent(popupID, EventImpression); err != nil {
		s.logger.Warn("failed to record impression", "popup_id", popupID, "error", err)
	}
}

// validEmail checks syntactic validity. The address must stand alone
// (no display name) and carry a dotted domain.
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return strings.Contains(email[at+1:], ".")
}
