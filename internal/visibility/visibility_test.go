package visibility

import (
	"testing"

	"github.com/leadpop/leadpop/internal/models"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name      string
		targeting string
		page      PageContext
		want      bool
	}{
		{"all on homepage", models.TargetAll, PageContext{IsHomepage: true}, true},
		{"all on inner page", models.TargetAll, PageContext{}, true},
		{"homepage on homepage", models.TargetHomepage, PageContext{IsHomepage: true}, true},
		{"homepage on inner page", models.TargetHomepage, PageContext{}, false},
		{"product on product page", models.TargetProduct, PageContext{IsProduct: true, HasProductPages: true}, true},
		{"product on other page", models.TargetProduct, PageContext{HasProductPages: true}, false},
		{"product without product pages fails open", models.TargetProduct, PageContext{}, true},
		{"unset targeting fails open", "", PageContext{}, true},
		{"unknown targeting fails open", "category", PageContext{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := models.TriggerConfig{PageTargeting: tt.targeting}
			if got := IsVisible(trigger, tt.page); got != tt.want {
				t.Errorf("IsVisible(%q, %+v) = %v, want %v", tt.targeting, tt.page, got, tt.want)
			}
		})
	}
}
