package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Nonces rotate every window; the current and the previous window are
// both accepted, so a nonce stays valid for at least one full window.
const nonceWindow = 12 * time.Hour

// NonceHeader carries the anti-forgery nonce on public POST endpoints
const NonceHeader = "X-Leadpop-Nonce"

// nonce returns the anti-forgery token for the current window
func (s *Server) nonce(now time.Time) string {
	return nonceAt(s.cfg.Auth.NonceSecret, now.Unix()/int64(nonceWindow/time.Second))
}

func nonceAt(secret string, tick int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// verifyNonce accepts the current and the previous window. With no
// secret configured the check is disabled.
func (s *Server) verifyNonce(nonce string, now time.Time) bool {
	secret := s.cfg.Auth.NonceSecret
	if secret == "" {
		return true
	}

	tick := now.Unix() / int64(nonceWindow/time.Second)
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(nonce), []byte(nonceAt(secret, t))) {
			return true
		}
	}
	return false
}

// nonceMiddleware rejects public POST requests without a valid nonce
func (s *Server) nonceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifyNonce(r.Header.Get(NonceHeader), time.Now()) {
			s.sendError(w, http.StatusForbidden, "invalid_nonce", "Invalid or expired nonce")
			return
		}
		next.ServeHTTP(w, r)
	})
}
