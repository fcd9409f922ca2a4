package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/repository"
)

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response for POST /auth/login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SavePopupRequest is the request body for POST /popup/save.
// An empty ID creates a new popup.
type SavePopupRequest struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Status string             `json:"status"`
	Config models.PopupConfig `json:"config"`
}

// PopupListResponse is the response for GET /popups
type PopupListResponse struct {
	Popups []models.PopupWithStats `json:"popups"`
	Total  int                     `json:"total"`
}

// LeadListResponse is the response for GET /leads
type LeadListResponse struct {
	Leads []models.Lead `json:"leads"`
	Total int           `json:"total"`
}

// WebhookSettings is the runtime webhook configuration
type WebhookSettings struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		s.logger.Error("failed to look up user", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("failed login attempt", "email", req.Email, "remote_addr", r.RemoteAddr)
		s.sendError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	session, err := s.users.CreateSession(user.ID, s.cfg.Auth.SessionTTL)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	s.sendJSON(w, http.StatusOK, LoginResponse{
		Token:     session.ID,
		ExpiresAt: session.ExpiresAt,
	})
}

// handleLogout handles POST /api/v1/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" && token != s.cfg.Auth.APIKey {
		if err := s.users.DeleteSession(token); err != nil {
			s.logger.Error("failed to delete session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSavePopup handles POST /api/v1/popup/save
func (s *Server) handleSavePopup(w http.ResponseWriter, r *http.Request) {
	var req SavePopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Title == "" {
		s.sendError(w, http.StatusBadRequest, "invalid_config", "title is required")
		return
	}
	if req.Status != "" && req.Status != models.StatusDraft && req.Status != models.StatusPublished {
		s.sendError(w, http.StatusBadRequest, "invalid_config", fmt.Sprintf("invalid status %q", req.Status))
		return
	}
	if err := req.Config.Validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	req.Config.Normalize()

	if req.ID == "" {
		popup := &models.Popup{
			Title:  req.Title,
			Status: req.Status,
			Config: req.Config,
		}
		if err := s.popups.Create(popup); err != nil {
			s.logger.Error("failed to create popup", "error", err)
			s.sendError(w, http.StatusInternalServerError, "save_failed", "Failed to save popup")
			return
		}
		s.logger.Info("popup created", "popup_id", popup.ID, "title", popup.Title)
		s.sendJSON(w, http.StatusCreated, popup)
		return
	}

	popup, err := s.popups.GetByID(req.ID)
	if err != nil {
		s.logger.Error("failed to load popup", "popup_id", req.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "save_failed", "Failed to save popup")
		return
	}
	if popup == nil {
		s.sendError(w, http.StatusNotFound, "popup_not_found", "Popup not found")
		return
	}

	popup.Title = req.Title
	if req.Status != "" {
		popup.Status = req.Status
	}
	popup.Config = req.Config

	if err := s.popups.Update(popup); err != nil {
		s.logger.Error("failed to update popup", "popup_id", popup.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "save_failed", "Failed to save popup")
		return
	}

	s.logger.Info("popup updated", "popup_id", popup.ID, "title", popup.Title)
	s.sendJSON(w, http.StatusOK, popup)
}

// handleListPopups handles GET /api/v1/popups
func (s *Server) handleListPopups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PopupListFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Limit:  queryInt(q.Get("limit"), 50),
		Offset: queryInt(q.Get("offset"), 0),
	}

	popups, total, err := s.popups.List(filter)
	if err != nil {
		s.logger.Error("failed to list popups", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, PopupListResponse{Popups: popups, Total: total})
}

// handleDeletePopup handles DELETE /api/v1/popup/{id}
func (s *Server) handleDeletePopup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	popup, err := s.popups.GetByID(id)
	if err != nil {
		s.logger.Error("failed to load popup", "popup_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	if popup == nil {
		s.sendError(w, http.StatusNotFound, "popup_not_found", "Popup not found")
		return
	}

	if err := s.popups.Delete(id); err != nil {
		s.logger.Error("failed to delete popup", "popup_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	s.logger.Info("popup deleted", "popup_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleTemplates handles GET /api/v1/popup-templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, StarterTemplates())
}

// handleListLeads handles GET /api/v1/leads
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, total, err := s.leads.List(leadFilter(r, 50))
	if err != nil {
		s.logger.Error("failed to list leads", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, LeadListResponse{Leads: leads, Total: total})
}

// handleSyncLead handles POST /api/v1/leads/{id}/sync
func (s *Server) handleSyncLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.leads.GetByID(id)
	if err != nil {
		s.logger.Error("failed to load lead", "lead_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	if lead == nil {
		s.sendError(w, http.StatusNotFound, "lead_not_found", "Lead not found")
		return
	}

	if err := s.leads.MarkSynced(id); err != nil {
		s.logger.Error("failed to mark lead synced", "lead_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	lead.Synced = true
	s.sendJSON(w, http.StatusOK, lead)
}

// handleExportLeads handles GET /api/v1/leads/export
func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	leads, _, err := s.leads.List(leadFilter(r, 0))
	if err != nil {
		s.logger.Error("failed to list leads for export", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	filename := "leads-" + time.Now().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	if err := WriteLeadsCSV(w, leads); err != nil {
		s.logger.Error("failed to write CSV export", "error", err)
	}
}

// handleGetWebhookSettings handles GET /api/v1/settings/webhook
func (s *Server) handleGetWebhookSettings(w http.ResponseWriter, r *http.Request) {
	enabled, webhookURL, err := s.settings.WebhookTarget()
	if err != nil {
		s.logger.Error("failed to load webhook settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	s.sendJSON(w, http.StatusOK, WebhookSettings{Enabled: enabled, URL: webhookURL})
}

// handleSetWebhookSettings handles PUT /api/v1/settings/webhook
func (s *Server) handleSetWebhookSettings(w http.ResponseWriter, r *http.Request) {
	var req WebhookSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Enabled {
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			s.sendError(w, http.StatusBadRequest, "invalid_url", "url must be an http(s) URL")
			return
		}
	}

	enabled := "0"
	if req.Enabled {
		enabled = "1"
	}
	if err := s.settings.SetSetting(repository.SettingWebhookEnabled, enabled); err != nil {
		s.logger.Error("failed to save webhook settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "save_failed", "Failed to save settings")
		return
	}
	if err := s.settings.SetSetting(repository.SettingWebhookURL, req.URL); err != nil {
		s.logger.Error("failed to save webhook settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "save_failed", "Failed to save settings")
		return
	}

	s.logger.Info("webhook settings updated", "enabled", req.Enabled, "url", req.URL)
	s.sendJSON(w, http.StatusOK, req)
}

// WriteLeadsCSV writes leads as CSV with a UTF-8 BOM so spreadsheet
// applications detect the encoding
func WriteLeadsCSV(w io.Writer, leads []models.Lead) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Popup", "Email", "Name", "Phone", "Form Data", "Synced", "Created At"}); err != nil {
		return err
	}

	for _, l := range leads {
		formData := "{}"
		if len(l.FormData) > 0 {
			b, err := json.Marshal(l.FormData)
			if err != nil {
				return fmt.Errorf("failed to encode form data for lead %s: %w", l.ID, err)
			}
			formData = string(b)
		}

		synced := "no"
		if l.Synced {
			synced = "yes"
		}

		if err := cw.Write([]string{
			l.ID,
			l.PopupTitle,
			l.Email,
			l.Name,
			l.Phone,
			formData,
			synced,
			l.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func leadFilter(r *http.Request, defaultLimit int) models.LeadListFilter {
	q := r.URL.Query()
	filter := models.LeadListFilter{
		PopupID: q.Get("popup_id"),
		Search:  q.Get("search"),
		Limit:   queryInt(q.Get("limit"), defaultLimit),
		Offset:  queryInt(q.Get("offset"), 0),
	}
	if v := q.Get("synced"); v != "" {
		synced := queryFlag(v)
		filter.Synced = &synced
	}
	return filter
}

func queryInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
