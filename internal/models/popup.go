package models

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// Popup statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Field types supported by the form renderer
const (
	FieldEmail = "email"
	FieldText  = "text"
	FieldName  = "name"
	FieldPhone = "phone"
)

// Page targeting modes
const (
	TargetAll      = "all"
	TargetHomepage = "homepage"
	TargetProduct  = "product"
)

// Popup represents a configured on-site popup
type Popup struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      string      `json:"status"`
	Config      PopupConfig `json:"config"`
	Impressions int64       `json:"impressions"`
	Conversions int64       `json:"conversions"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PopupConfig is the full popup configuration, validated once on save
type PopupConfig struct {
	Design   DesignConfig  `json:"design"`
	Fields   []Field       `json:"fields"`
	Triggers TriggerConfig `json:"triggers"`
	ThankYou ThankYou      `json:"thank_you"`
}

// DesignConfig holds the popup appearance settings
type DesignConfig struct {
	Title           string `json:"title"`
	Text            string `json:"text"`
	Image           string `json:"image"`
	BackgroundColor string `json:"background_color"`
	ButtonText      string `json:"button_text"`
	ButtonColor     string `json:"button_color"`
}

// Field is one input control in the popup form
type Field struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder"`
}

// TriggerConfig controls when and where a popup is shown
type TriggerConfig struct {
	PageTargeting string `json:"page_targeting"`
	TimeDelay     int    `json:"time_delay"`
	ScrollPercent int    `json:"scroll_percent"`
	ShowOnce      bool   `json:"show_once"`
}

// ThankYou is the post-submission configuration
type ThankYou struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// PopupWithStats includes analytics fields for the builder
type PopupWithStats struct {
	Popup
	ConversionRate float64 `json:"conversion_rate"`
}

// PopupListFilter for filtering popups
type PopupListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// ConversionRate returns the conversion percentage rounded to two decimals.
// Zero impressions yields zero, not a division error.
func (p *Popup) ConversionRate() float64 {
	if p.Impressions == 0 {
		return 0
	}
	rate := float64(p.Conversions) / float64(p.Impressions) * 100
	return math.Round(rate*100) / 100
}

// Normalize fills design and trigger defaults in place
func (c *PopupConfig) Normalize() {
	if c.Design.BackgroundColor == "" {
		c.Design.BackgroundColor = "#ffffff"
	}
	if c.Design.ButtonColor == "" {
		c.Design.ButtonColor = "#0073aa"
	}
	if c.Design.ButtonText == "" {
		c.Design.ButtonText = "Submit"
	}
	if c.Triggers.PageTargeting == "" {
		c.Triggers.PageTargeting = TargetAll
	}
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks the config at the trust boundary. Empty optional values
// pass; Normalize fills their defaults afterwards.
func (c *PopupConfig) Validate() error {
	switch c.Triggers.PageTargeting {
	case "", TargetAll, TargetHomepage, TargetProduct:
	default:
		return fmt.Errorf("invalid page_targeting %q", c.Triggers.PageTargeting)
	}
	if v := c.Design.BackgroundColor; v != "" && !hexColorRe.MatchString(v) {
		return fmt.Errorf("background_color must be a hex color, got %q", v)
	}
	if v := c.Design.ButtonColor; v != "" && !hexColorRe.MatchString(v) {
		return fmt.Errorf("button_color must be a hex color, got %q", v)
	}
	if c.Triggers.TimeDelay < 0 {
		return fmt.Errorf("time_delay must not be negative")
	}
	if c.Triggers.ScrollPercent < 0 || c.Triggers.ScrollPercent > 100 {
		return fmt.Errorf("scroll_percent must be between 0 and 100")
	}
	for i, f := range c.Fields {
		switch f.Type {
		case FieldEmail, FieldText, FieldName, FieldPhone:
		default:
			return fmt.Errorf("field %d: invalid type %q", i, f.Type)
		}
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
	}
	return nil
}
