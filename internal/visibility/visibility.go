// Package visibility decides whether a popup may be shown on a page.
package visibility

import "github.com/leadpop/leadpop/internal/models"

// PageContext describes the page a visitor is on.
type PageContext struct {
	IsHomepage bool
	IsProduct  bool
	// HasProductPages reports whether the deployment distinguishes product
	// pages at all. When it does not, product targeting fails open.
	HasProductPages bool
}

// IsVisible evaluates the page-targeting rule of a trigger config against a
// page context. Unknown or unset targeting values fail open.
func IsVisible(t models.TriggerConfig, page PageContext) bool {
	switch t.PageTargeting {
	case models.TargetAll:
		return true
	case models.TargetHomepage:
		return page.IsHomepage
	case models.TargetProduct:
		if page.HasProductPages {
			return page.IsProduct
		}
		return true
	default:
		return true
	}
}
