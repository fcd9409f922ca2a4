package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leadpop/leadpop/internal/delivery"
	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/render"
	"github.com/leadpop/leadpop/internal/visibility"
)

const version = "0.1.0"

// Seconds before the frontend auto-closes the thank-you view
const thankYouAutoClose = 3

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// BootstrapResponse seeds the frontend loader: where to call back,
// the anti-forgery nonce, and the popups deliverable on this page
type BootstrapResponse struct {
	APIURL string           `json:"api_url"`
	Nonce  string           `json:"nonce"`
	Popups []BootstrapPopup `json:"popups"`
}

// BootstrapPopup is the subset of a popup the loader needs to arm
// its trigger watchers
type BootstrapPopup struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Triggers models.TriggerConfig `json:"triggers"`
}

// PopupResponse is the public projection of a popup. Counters and status
// stay private to the admin surface.
type PopupResponse struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Config models.PopupConfig `json:"config"`
}

// SubmitResponse is the response for POST /lead/submit
type SubmitResponse struct {
	Success   bool   `json:"success"`
	LeadID    string `json:"lead_id"`
	Message   string `json:"message"`
	Redirect  string `json:"redirect,omitempty"`
	AutoClose int    `json:"auto_close_seconds"`
}

// EventRequest is the request body for POST /event
type EventRequest struct {
	PopupID   string `json:"popup_id"`
	EventType string `json:"event_type"`
}

// EventResponse is the response for POST /event
type EventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version,
		Uptime:  time.Since(s.startTime).String(),
	})
}

// handleBootstrap handles GET /api/v1/bootstrap
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	popups, err := s.delivery.ListVisible(pageContext(r))
	if err != nil {
		s.logger.Error("failed to list visible popups", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	resp := BootstrapResponse{
		APIURL: s.cfg.Server.BaseURL + "/api/v1",
		Nonce:  s.nonce(time.Now()),
		Popups: make([]BootstrapPopup, len(popups)),
	}
	for i, p := range popups {
		resp.Popups[i] = BootstrapPopup{
			ID:       p.ID,
			Title:    p.Title,
			Triggers: p.Config.Triggers,
		}
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleGetPopup handles GET /api/v1/popup/{id}
func (s *Server) handleGetPopup(w http.ResponseWriter, r *http.Request) {
	popup, err := s.delivery.GetPopupConfig(chi.URLParam(r, "id"), pageContext(r))
	if err != nil {
		s.deliveryError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, PopupResponse{
		ID:     popup.ID,
		Title:  popup.Title,
		Config: popup.Config,
	})
}

// handleRenderPopup handles GET /api/v1/popup/{id}/render
func (s *Server) handleRenderPopup(w http.ResponseWriter, r *http.Request) {
	popup, err := s.delivery.GetPopupConfig(chi.URLParam(r, "id"), pageContext(r))
	if err != nil {
		s.deliveryError(w, err)
		return
	}

	html, err := render.Popup(popup)
	if err != nil {
		s.logger.Error("failed to render popup", "popup_id", popup.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// handleSubmitLead handles POST /api/v1/lead/submit
func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req delivery.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	lead, err := s.delivery.SubmitLead(req)
	if err != nil {
		s.deliveryError(w, err)
		return
	}

	resp := SubmitResponse{
		Success:   true,
		LeadID:    lead.ID,
		Message:   "Thank you for subscribing!",
		AutoClose: thankYouAutoClose,
	}
	if popup, err := s.popups.GetByID(lead.PopupID); err == nil && popup != nil {
		if popup.Config.ThankYou.Message != "" {
			resp.Message = popup.Config.ThankYou.Message
		}
		resp.Redirect = popup.Config.ThankYou.Redirect
	}

	s.sendJSON(w, http.StatusCreated, resp)
}

// handleEvent handles POST /api/v1/event
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := s.delivery.RecordEvent(req.PopupID, req.EventType); err != nil {
		s.deliveryError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, EventResponse{Success: true, Message: "Event recorded"})
}

// pageContext derives the visibility context from the loader's query
// parameters
func pageContext(r *http.Request) visibility.PageContext {
	q := r.URL.Query()
	return visibility.PageContext{
		IsHomepage:      queryFlag(q.Get("homepage")),
		IsProduct:       queryFlag(q.Get("product")),
		HasProductPages: queryFlag(q.Get("has_products")),
	}
}

func queryFlag(v string) bool {
	return v == "1" || v == "true"
}

// deliveryError maps delivery errors onto the public error taxonomy
func (s *Server) deliveryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, delivery.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "popup_not_found", "Popup not found")
	case errors.Is(err, delivery.ErrNotPublished):
		s.sendError(w, http.StatusForbidden, "popup_not_published", "Popup is not published")
	case errors.Is(err, delivery.ErrNotVisible):
		s.sendError(w, http.StatusForbidden, "popup_not_visible", "Popup is not shown on this page")
	case errors.Is(err, delivery.ErrInvalidPopup):
		s.sendError(w, http.StatusBadRequest, "invalid_popup", "Unknown popup")
	case errors.Is(err, delivery.ErrInvalidEmail):
		s.sendError(w, http.StatusBadRequest, "invalid_email", "A valid email address is required")
	case errors.Is(err, delivery.ErrInvalidEvent):
		s.sendError(w, http.StatusBadRequest, "invalid_event", "Unknown event type")
	default:
		s.logger.Error("delivery request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message, Code: code})
}
