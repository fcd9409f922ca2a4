// Package webhook forwards accepted leads to an external HTTP endpoint.
// Delivery is best-effort: one attempt, bounded timeout, failures logged
// and never surfaced to the submitter.
package webhook

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/metrics"
	"github.com/leadpop/leadpop/internal/models"
)

// TargetSource resolves the webhook target at dispatch time, so the admin
// can flip it at runtime without a restart. Absent settings fall back to
// the static config.
type TargetSource interface {
	WebhookTarget() (enabled bool, url string, err error)
}

// Payload is the JSON body POSTed for each lead
type Payload struct {
	PopupID   string            `json:"popup_id"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	FormData  map[string]string `json:"form_data"`
	Timestamp time.Time         `json:"timestamp"`
}

// Dispatcher sends lead webhooks in the background
type Dispatcher struct {
	cfg    config.WebhookConfig
	source TargetSource
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

func New(cfg config.WebhookConfig, source TargetSource, logger *slog.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		source: source,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "webhook"),
	}
}

// Forward dispatches the lead asynchronously. It never blocks and never
// returns an error; a webhook failure must not fail the submission.
func (d *Dispatcher) Forward(l *models.Lead) {
	enabled, url := d.target()
	if !enabled || url == "" {
		return
	}

	payload := Payload{
		PopupID:   l.PopupID,
		Email:     l.Email,
		Name:      l.Name,
		Phone:     l.Phone,
		FormData:  l.FormData,
		Timestamp: l.CreatedAt,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.post(url, payload)
	}()
}

// Close waits for in-flight dispatches to finish
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) target() (bool, string) {
	if d.source != nil {
		enabled, url, err := d.source.WebhookTarget()
		if err != nil {
			d.logger.Error("failed to read webhook settings", "error", err)
		} else if url != "" {
			return enabled, url
		}
	}
	return d.cfg.Enabled, d.cfg.URL
}

func (d *Dispatcher) post(url string, payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to encode webhook payload", "error", err)
		return
	}

	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("webhook delivery failed", "url", url, "popup_id", payload.PopupID, "error", err)
		metrics.IncWebhook("error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook rejected", "url", url, "popup_id", payload.PopupID, "status", resp.StatusCode)
		metrics.IncWebhook("rejected")
		return
	}

	d.logger.Debug("webhook delivered", "url", url, "popup_id", payload.PopupID)
	metrics.IncWebhook("ok")
}
