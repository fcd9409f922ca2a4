package delivery

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/leadpop/leadpop/internal/models"
	"github.com/leadpop/leadpop/internal/trigger"
	"github.com/leadpop/leadpop/internal/visibility"
)

// fakePopupStore is an in-memory PopupStore
type fakePopupStore struct {
	popups      map[string]*models.Popup
	impressions map[string]int
	conversions map[string]int
	failGet     bool
}

func newFakePopupStore() *fakePopupStore {
	return &fakePopupStore{
		popups:      make(map[string]*models.Popup),
		impressions: make(map[string]int),
		conversions: make(map[string]int),
	}
}

func (f *fakePopupStore) GetByID(id string) (*models.Popup, error) {
	if f.failGet {
		return nil, errors.New("store down")
	}
	return f.popups[id], nil
}

func (f *fakePopupStore) ListPublished() ([]models.Popup, error) {
	var out []models.Popup
	for _, p := range f.popups {
		if p.Status == models.StatusPublished {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePopupStore) IncrementImpressions(id string) error {
	f.impressions[id]++
	return nil
}

func (f *fakePopupStore) IncrementConversions(id string) error {
	f.conversions[id]++
	return nil
}

// fakeLeadStore is an in-memory LeadStore
type fakeLeadStore struct {
	leads   []*models.Lead
	failing bool
}

func (f *fakeLeadStore) Insert(l *models.Lead) error {
	if f.failing {
		return errors.New("insert failed")
	}
	l.ID = "lead-1"
	f.leads = append(f.leads, l)
	return nil
}

type fakeForwarder struct {
	forwarded []*models.Lead
}

func (f *fakeForwarder) Forward(l *models.Lead) {
	f.forwarded = append(f.forwarded, l)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func publishedPopup(id string) *models.Popup {
	return &models.Popup{
		ID:     id,
		Title:  "Newsletter",
		Status: models.StatusPublished,
		Config: models.PopupConfig{
			Triggers: models.TriggerConfig{PageTargeting: models.TargetAll},
		},
	}
}

func TestGetPopupConfig(t *testing.T) {
	popups := newFakePopupStore()
	popups.popups["42"] = publishedPopup("42")

	draft := publishedPopup("draft-1")
	draft.Status = models.StatusDraft
	popups.popups["draft-1"] = draft

	home := publishedPopup("home-1")
	home.Config.Triggers.PageTargeting = models.TargetHomepage
	popups.popups["home-1"] = home

	svc := New(popups, &fakeLeadStore{}, testLogger())

	t.Run("published and visible", func(t *testing.T) {
		got, err := svc.GetPopupConfig("42", visibility.PageContext{})
		if err != nil {
			t.Fatalf("GetPopupConfig() error = %v", err)
		}
		if got.ID != "42" {
			t.Errorf("ID = %v, want 42", got.ID)
		}
	})

	t.Run("missing popup", func(t *testing.T) {
		_, err := svc.GetPopupConfig("nope", visibility.PageContext{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("draft popup", func(t *testing.T) {
		_, err := svc.GetPopupConfig("draft-1", visibility.PageContext{})
		if !errors.Is(err, ErrNotPublished) {
			t.Errorf("error = %v, want ErrNotPublished", err)
		}
	})

	t.Run("homepage popup off homepage", func(t *testing.T) {
		_, err := svc.GetPopupConfig("home-1", visibility.PageContext{})
		if !errors.Is(err, ErrNotVisible) {
			t.Errorf("error = %v, want ErrNotVisible", err)
		}
	})

	t.Run("homepage popup on homepage", func(t *testing.T) {
		if _, err := svc.GetPopupConfig("home-1", visibility.PageContext{IsHomepage: true}); err != nil {
			t.Errorf("GetPopupConfig() error = %v", err)
		}
	})
}

func TestListVisible(t *testing.T) {
	popups := newFakePopupStore()
	popups.popups["all"] = publishedPopup("all")

	home := publishedPopup("home")
	home.Config.Triggers.PageTargeting = models.TargetHomepage
	popups.popups["home"] = home

	draft := publishedPopup("draft")
	draft.Status = models.StatusDraft
	popups.popups["draft"] = draft

	svc := New(popups, &fakeLeadStore{}, testLogger())

	visible, err := svc.ListVisible(visibility.PageContext{})
	if err != nil {
		t.Fatalf("ListVisible() error = %v", err)
	}
	if len(visible) != 1 || visible[0].ID != "all" {
		t.Errorf("ListVisible() = %+v, want only popup 'all'", visible)
	}

	visible, err = svc.ListVisible(visibility.PageContext{IsHomepage: true})
	if err != nil {
		t.Fatalf("ListVisible() error = %v", err)
	}
	if len(visible) != 2 {
		t.Errorf("ListVisible(homepage) len = %d, want 2", len(visible))
	}
}

func TestSubmitLead(t *testing.T) {
	t.Run("valid submission", func(t *testing.T) {
		popups := newFakePopupStore()
		popups.popups["42"] = publishedPopup("42")
		leads := &fakeLeadStore{}
		fw := &fakeForwarder{}

		svc := New(popups, leads, testLogger())
		svc.AddForwarder(fw)

		lead, err := svc.SubmitLead(SubmitRequest{
			PopupID:  "42",
			Email:    "a@b.com",
			Name:     "Alice",
			FormData: map[string]string{"email": "a@b.com"},
		})
		if err != nil {
			t.Fatalf("SubmitLead() error = %v", err)
		}
		if lead.ID == "" {
			t.Error("SubmitLead() lead has no ID")
		}
		if lead.Synced {
			t.Error("SubmitLead() lead.Synced = true, want false")
		}
		if len(leads.leads) != 1 {
			t.Fatalf("stored %d leads, want 1", len(leads.leads))
		}
		if popups.conversions["42"] != 1 {
			t.Errorf("conversions = %d, want 1", popups.conversions["42"])
		}
		if len(fw.forwarded) != 1 {
			t.Errorf("forwarded %d leads, want 1", len(fw.forwarded))
		}
	})

	t.Run("unknown popup", func(t *testing.T) {
		popups := newFakePopupStore()
		leads := &fakeLeadStore{}
		svc := New(popups, leads, testLogger())

		_, err := svc.SubmitLead(SubmitRequest{PopupID: "nope", Email: "a@b.com"})
		if !errors.Is(err, ErrInvalidPopup) {
			t.Errorf("error = %v, want ErrInvalidPopup", err)
		}
		if len(leads.leads) != 0 {
			t.Error("no lead must be stored for an unknown popup")
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		popups := newFakePopupStore()
		popups.popups["42"] = publishedPopup("42")
		leads := &fakeLeadStore{}
		svc := New(popups, leads, testLogger())

		for _, email := range []string{"", "not-an-email", "a@b", "Alice <a@b.com>", "a b@c.com"} {
			_, err := svc.SubmitLead(SubmitRequest{PopupID: "42", Email: email})
			if !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("SubmitLead(%q) error = %v, want ErrInvalidEmail", email, err)
			}
		}
		if len(leads.leads) != 0 {
			t.Error("no lead must be stored for invalid emails")
		}
		if popups.conversions["42"] != 0 {
			t.Errorf("conversions = %d, want 0", popups.conversions["42"])
		}
	})

	t.Run("insert failure records nothing else", func(t *testing.T) {
		popups := newFakePopupStore()
		popups.popups["42"] = publishedPopup("42")
		leads := &fakeLeadStore{failing: true}
		fw := &fakeForwarder{}

		svc := New(popups, leads, testLogger())
		svc.AddForwarder(fw)

		_, err := svc.SubmitLead(SubmitRequest{PopupID: "42", Email: "a@b.com"})
		if err == nil {
			t.Fatal("SubmitLead() expected error")
		}
		if popups.conversions["42"] != 0 {
			t.Errorf("conversions = %d, want 0 after failed insert", popups.conversions["42"])
		}
		if len(fw.forwarded) != 0 {
			t.Error("nothing must be forwarded after failed insert")
		}
	})
}

func TestRecordEvent(t *testing.T) {
	popups := newFakePopupStore()
	popups.popups["42"] = publishedPopup("42")
	svc := New(popups, &fakeLeadStore{}, testLogger())

	if err := svc.RecordEvent("42", EventImpression); err != nil {
		t.Fatalf("RecordEvent(impression) error = %v", err)
	}
	if err := svc.RecordEvent("42", EventConversion); err != nil {
		t.Fatalf("RecordEvent(conversion) error = %v", err)
	}
	if popups.impressions["42"] != 1 || popups.conversions["42"] != 1 {
		t.Errorf("counters = %d/%d, want 1/1", popups.impressions["42"], popups.conversions["42"])
	}

	if err := svc.RecordEvent("nope", EventImpression); !errors.Is(err, ErrInvalidPopup) {
		t.Errorf("error = %v, want ErrInvalidPopup", err)
	}
	if err := svc.RecordEvent("42", "click"); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("error = %v, want ErrInvalidEvent", err)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@example.co.uk", "user+tag@domain.io"}
	invalid := []string{"", "not-an-email", "a@b", "@example.com", "a@"}

	for _, e := range valid {
		if !validEmail(e) {
			t.Errorf("validEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if validEmail(e) {
			t.Errorf("validEmail(%q) = true, want false", e)
		}
	}
}

func TestRecordImpression(t *testing.T) {
	popups := newFakePopupStore()
	popups.popups["42"] = &models.Popup{ID: "42", Status: models.StatusPublished}
	svc := New(popups, &fakeLeadStore{}, testLogger())

	// Satisfies the trigger engine's recorder contract
	var _ trigger.ImpressionRecorder = svc

	svc.RecordImpression("42")
	if popups.impressions["42"] != 1 {
		t.Errorf("impressions = %d, want 1", popups.impressions["42"])
	}

	// Unknown popup is dropped silently
	svc.RecordImpression("nope")
	if popups.impressions["nope"] != 0 {
		t.Errorf("impressions for unknown popup = %d, want 0", popups.impressions["nope"])
	}
}
