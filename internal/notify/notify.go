// Package notify emails the store owner about new leads. Like the lead
// webhook it is best-effort: one attempt, failures logged, never surfaced
// to the submitter.
package notify

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/metrics"
	"github.com/leadpop/leadpop/internal/models"
)

// Mailer sends lead notification emails over SMTP
type Mailer struct {
	cfg    config.NotifyConfig
	logger *slog.Logger
	wg     sync.WaitGroup

	// send is swapped out in tests
	send func(addr string, a sasl.Client, from string, to []string, r *strings.Reader) error
}

func New(cfg config.NotifyConfig, logger *slog.Logger) *Mailer {
	m := &Mailer{
		cfg:    cfg,
		logger: logger.With("component", "notify"),
	}
	m.send = func(addr string, a sasl.Client, from string, to []string, r *strings.Reader) error {
		if cfg.UseTLS {
			return smtp.SendMailTLS(addr, a, from, to, r)
		}
		return smtp.SendMail(addr, a, from, to, r)
	}
	return m
}

// Forward emails the lead asynchronously, satisfying delivery.Forwarder
func (m *Mailer) Forward(l *models.Lead) {
	if !m.cfg.Enabled {
		return
	}

	msg := m.buildMessage(l)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		var auth sasl.Client
		if m.cfg.Username != "" {
			auth = sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
		}

		if err := m.send(m.cfg.SMTPAddr, auth, m.cfg.From, []string{m.cfg.To}, strings.NewReader(msg)); err != nil {
			m.logger.Warn("lead notification failed", "lead_id", l.ID, "error", err)
			metrics.IncNotification("error")
			return
		}
		m.logger.Debug("lead notification sent", "lead_id", l.ID)
		metrics.IncNotification("ok")
	}()
}

// Close waits for in-flight notifications
func (m *Mailer) Close() {
	m.wg.Wait()
}

func (m *Mailer) buildMessage(l *models.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.cfg.To)
	fmt.Fprintf(&b, "Subject: New lead: %s\r\n", l.Email)
	fmt.Fprintf(&b, "Date: %s\r\n", l.CreatedAt.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "A new lead was captured.\r\n\r\n")
	fmt.Fprintf(&b, "Popup:  %s\r\n", l.PopupID)
	fmt.Fprintf(&b, "Email:  %s\r\n", l.Email)
	if l.Name != "" {
		fmt.Fprintf(&b, "Name:   %s\r\n", l.Name)
	}
	if l.Phone != "" {
		fmt.Fprintf(&b, "Phone:  %s\r\n", l.Phone)
	}

	if len(l.FormData) > 0 {
		b.WriteString("\r\nForm data:\r\n")
		keys := make([]string, 0, len(l.FormData))
		for k := range l.FormData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\r\n", k, l.FormData[k])
		}
	}

	return b.String()
}
