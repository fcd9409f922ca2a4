package api

import "github.com/leadpop/leadpop/internal/models"

// PopupTemplate is a starter configuration offered by the builder
type PopupTemplate struct {
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Title       string             `json:"title"`
	Config      models.PopupConfig `json:"config"`
}

// StarterTemplates returns the built-in popup presets
func StarterTemplates() []PopupTemplate {
	return []PopupTemplate{
		{
			Slug:        "newsletter",
			Name:        "Newsletter Signup",
			Description: "Collect email subscribers a few seconds after the page loads.",
			Title:       "Newsletter Signup",
			Config: models.PopupConfig{
				Design: models.DesignConfig{
					Title:      "Join our newsletter",
					Text:       "Get the latest news and offers straight to your inbox.",
					ButtonText: "Subscribe",
				},
				Fields: []models.Field{
					{Type: models.FieldEmail, Name: "email", Label: "Email", Required: true, Placeholder: "you@example.com"},
				},
				Triggers: models.TriggerConfig{
					PageTargeting: models.TargetAll,
					TimeDelay:     5,
					ShowOnce:      true,
				},
				ThankYou: models.ThankYou{
					Message: "Thanks for subscribing! Check your inbox to confirm.",
				},
			},
		},
		{
			Slug:        "exit-discount",
			Name:        "Exit Discount",
			Description: "Catch leaving visitors with a discount offer.",
			Title:       "Exit Discount",
			Config: models.PopupConfig{
				Design: models.DesignConfig{
					Title:      "Wait! Here's 10% off",
					Text:       "Leave your email and we'll send you a discount code.",
					ButtonText: "Get my discount",
				},
				Fields: []models.Field{
					{Type: models.FieldEmail, Name: "email", Label: "Email", Required: true, Placeholder: "you@example.com"},
					{Type: models.FieldName, Name: "name", Label: "Name", Placeholder: "Your name"},
				},
				Triggers: models.TriggerConfig{
					PageTargeting: models.TargetProduct,
					ShowOnce:      true,
				},
				ThankYou: models.ThankYou{
					Message: "Your discount code is on its way!",
				},
			},
		},
		{
			Slug:        "callback",
			Name:        "Request a Callback",
			Description: "Collect phone numbers from engaged readers.",
			Title:       "Request a Callback",
			Config: models.PopupConfig{
				Design: models.DesignConfig{
					Title:      "Have questions?",
					Text:       "Leave your number and we'll call you back.",
					ButtonText: "Call me back",
				},
				Fields: []models.Field{
					{Type: models.FieldName, Name: "name", Label: "Name", Required: true, Placeholder: "Your name"},
					{Type: models.FieldPhone, Name: "phone", Label: "Phone", Required: true, Placeholder: "+1 555 000 0000"},
				},
				Triggers: models.TriggerConfig{
					PageTargeting: models.TargetAll,
					ScrollPercent: 60,
				},
				ThankYou: models.ThankYou{
					Message: "Thanks! We'll be in touch shortly.",
				},
			},
		},
	}
}
