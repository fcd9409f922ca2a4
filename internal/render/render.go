// Package render builds popup markup from a popup configuration.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/leadpop/leadpop/internal/models"
)

const popupTemplate = `<div class="leadpop-overlay" data-popup-id="{{.ID}}">
  <div class="leadpop-popup" style="background-color: {{.Design.BackgroundColor}};">
    <button type="button" class="leadpop-close" aria-label="Close">&times;</button>
{{- if .Design.Image}}
    <div class="leadpop-image"><img src="{{.Design.Image}}" alt="" /></div>
{{- end}}
    <div class="leadpop-content">
{{- if .Design.Title}}
      <h2 class="leadpop-title">{{.Design.Title}}</h2>
{{- end}}
{{- if .Design.Text}}
      <div class="leadpop-text">{{.Design.Text}}</div>
{{- end}}
      <form class="leadpop-form" data-popup-id="{{.ID}}">
{{- range .Fields}}
        <div class="leadpop-field">
          <label for="leadpop-field-{{.Name}}">{{.Label}}</label>
          <input type="{{.InputType}}" id="leadpop-field-{{.Name}}" name="{{.Name}}" placeholder="{{.Placeholder}}"{{if .Required}} required{{end}} />
        </div>
{{- end}}
        <button type="submit" class="leadpop-submit" style="background-color: {{.Design.ButtonColor}};">{{.Design.ButtonText}}</button>
      </form>
    </div>
  </div>
</div>
`

const thankYouTemplate = `<div class="leadpop-content">
  <div class="leadpop-thank-you">{{.Message}}</div>
</div>
`

var (
	popupTmpl    = template.Must(template.New("popup").Parse(popupTemplate))
	thankYouTmpl = template.Must(template.New("thank_you").Parse(thankYouTemplate))
)

type fieldView struct {
	Name        string
	Label       string
	Placeholder string
	Required    bool
	InputType   string
}

type designView struct {
	Image           string
	Title           string
	Text            template.HTML
	BackgroundColor string
	ButtonColor     string
	ButtonText      string
}

type popupView struct {
	ID     string
	Design designView
	Fields []fieldView
}

// inputType maps a field type to its HTML input type.
// Unrecognized types render no control at all.
func inputType(fieldType string) (string, bool) {
	switch fieldType {
	case models.FieldEmail:
		return "email", true
	case models.FieldText, models.FieldName:
		return "text", true
	case models.FieldPhone:
		return "tel", true
	default:
		return "", false
	}
}

// Popup renders the full popup markup for a popup
func Popup(p *models.Popup) (string, error) {
	cfg := p.Config
	cfg.Normalize()

	view := popupView{
		ID: p.ID,
		Design: designView{
			Image:           cfg.Design.Image,
			Title:           cfg.Design.Title,
			Text:            template.HTML(cfg.Design.Text),
			BackgroundColor: cfg.Design.BackgroundColor,
			ButtonColor:     cfg.Design.ButtonColor,
			ButtonText:      cfg.Design.ButtonText,
		},
	}

	for _, f := range cfg.Fields {
		t, ok := inputType(f.Type)
		if !ok {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Name
		}
		placeholder := f.Placeholder
		if placeholder == "" {
			placeholder = label
		}
		view.Fields = append(view.Fields, fieldView{
			Name:        f.Name,
			Label:       label,
			Placeholder: placeholder,
			Required:    f.Required,
			InputType:   t,
		})
	}

	var sb strings.Builder
	if err := popupTmpl.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to render popup: %w", err)
	}
	return sb.String(), nil
}

// ThankYou renders the post-submission fragment that replaces the form
func ThankYou(message string) (string, error) {
	if message == "" {
		message = "Thank you for subscribing!"
	}
	var sb strings.Builder
	err := thankYouTmpl.Execute(&sb, struct{ Message template.HTML }{template.HTML(message)})
	if err != nil {
		return "", fmt.Errorf("failed to render thank you: %w", err)
	}
	return sb.String(), nil
}
