package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventRecorded(t *testing.T) {
	m := New()

	m.EventRecorded("p1", "impression")
	m.EventRecorded("p1", "impression")
	m.EventRecorded("p1", "conversion")
	m.EventRecorded("p1", "bogus")

	if got := testutil.ToFloat64(m.ImpressionsTotal.WithLabelValues("p1")); got != 2 {
		t.Errorf("impressions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("p1")); got != 1 {
		t.Errorf("conversions = %v, want 1", got)
	}
}

func TestLeadAccepted(t *testing.T) {
	m := New()

	m.LeadAccepted("p1")
	m.LeadAccepted("p2")
	m.LeadAccepted("p1")

	if got := testutil.ToFloat64(m.LeadsTotal.WithLabelValues("p1")); got != 2 {
		t.Errorf("leads p1 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LeadsTotal.WithLabelValues("p2")); got != 1 {
		t.Errorf("leads p2 = %v, want 1", got)
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Helpers are no-ops without a global instance
	SetGlobal(nil)
	IncWebhook("ok")
	IncNotification("error")
	IncAPIErrors("server_error")

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncWebhook("ok")
	IncWebhook("ok")
	IncNotification("error")

	if got := testutil.ToFloat64(m.WebhooksTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("webhooks ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("notifications error = %v, want 1", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/popup/b1a4efdc-9a52-4a5e-9ba1-0123456789ab", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("GET", "/api/v1/popup/{id}", "404")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.APIErrorsTotal.WithLabelValues("not_found")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestCategorizeStatus(t *testing.T) {
	cases := map[int]string{
		500: "server_error",
		503: "server_error",
		401: "auth_error",
		403: "auth_error",
		404: "not_found",
		400: "bad_request",
		422: "client_error",
		200: "unknown",
	}
	for status, want := range cases {
		if got := categorizeStatus(status); got != want {
			t.Errorf("categorizeStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
