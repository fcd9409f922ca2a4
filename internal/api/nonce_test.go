package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/leadpop/leadpop/internal/models"
)

func TestNonceVerify(t *testing.T) {
	ts := newTestServer(t)
	ts.cfg.Auth.NonceSecret = strings.Repeat("s", 32)

	now := time.Now()
	nonce := ts.nonce(now)
	if len(nonce) != 16 {
		t.Fatalf("nonce length = %d, want 16", len(nonce))
	}

	if !ts.verifyNonce(nonce, now) {
		t.Error("current nonce rejected")
	}
	// A nonce minted in the previous window is still accepted
	if !ts.verifyNonce(nonce, now.Add(nonceWindow)) {
		t.Error("previous-window nonce rejected")
	}
	if ts.verifyNonce(nonce, now.Add(2*nonceWindow)) {
		t.Error("expired nonce accepted")
	}
	if ts.verifyNonce("bogus", now) {
		t.Error("bogus nonce accepted")
	}
}

func TestNonceDisabledWithoutSecret(t *testing.T) {
	ts := newTestServer(t)

	if !ts.verifyNonce("", time.Now()) {
		t.Error("empty nonce rejected with no secret configured")
	}
}

func TestNonceMiddleware(t *testing.T) {
	ts := newTestServer(t)
	ts.cfg.Auth.NonceSecret = strings.Repeat("s", 32)

	p := ts.createPopup(t, models.StatusPublished, models.TriggerConfig{PageTargeting: models.TargetAll})
	body := `{"popup_id":"` + p.ID + `","email":"visitor@example.com"}`

	w := ts.request(t, http.MethodPost, "/api/v1/lead/submit", strings.NewReader(body), nil)
	assertErrorCode(t, w, http.StatusForbidden, "invalid_nonce")

	headers := map[string]string{NonceHeader: ts.nonce(time.Now())}
	w = ts.request(t, http.MethodPost, "/api/v1/lead/submit", strings.NewReader(body), headers)
	assertStatus(t, w, http.StatusCreated)
}

func TestBootstrapCarriesNonce(t *testing.T) {
	ts := newTestServer(t)
	ts.cfg.Auth.NonceSecret = strings.Repeat("s", 32)

	w := ts.request(t, http.MethodGet, "/api/v1/bootstrap", nil, nil)
	assertStatus(t, w, http.StatusOK)

	resp := decodeJSON[BootstrapResponse](t, w)
	if !ts.verifyNonce(resp.Nonce, time.Now()) {
		t.Error("bootstrap nonce does not verify")
	}
}
