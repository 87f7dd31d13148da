// Package templates is the read-only catalog of typesetting templates.
package templates

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed assets/*.tex
var templateFiles embed.FS

// DefaultTemplateID is returned by GetByID when the requested ID is unknown.
const DefaultTemplateID = "modern_ats_v1"

// Template is one catalog entry: a LaTeX body with named placeholders.
// Templates are immutable; the registry never mutates at runtime.
type Template struct {
	ID                   string
	DisplayName          string
	Category             string
	Body                 string
	RequiredPlaceholders []string
}

type templateSpec struct {
	id          string
	displayName string
	category    string
	assetName   string
	required    []string
}

var catalogSpecs = []templateSpec{
	{
		id:          "modern_ats_v1",
		displayName: "Modern (ATS friendly)",
		category:    "modern",
		assetName:   "modern_ats_v1.tex",
		required: []string{
			"FULL_NAME", "CONTACT_LINE", "PROFESSIONAL_SUMMARY", "SKILLS", "EXPERIENCE",
		},
	},
	{
		id:          "classic_serif_v1",
		displayName: "Classic Serif",
		category:    "classic",
		assetName:   "classic_serif_v1.tex",
		required: []string{
			"FULL_NAME", "CONTACT_LINE", "EXPERIENCE", "EDUCATION",
		},
	},
	{
		id:          "compact_onepage_v1",
		displayName: "Compact One-Page",
		category:    "compact",
		assetName:   "compact_onepage_v1.tex",
		required: []string{
			"FULL_NAME", "CONTACT_LINE", "EXPERIENCE",
		},
	},
}

// Registry serves immutable templates loaded from embedded assets.
type Registry struct {
	byID  map[string]Template
	order []string
}

// NewRegistry loads the embedded catalog. It fails only on a broken build
// (missing asset or undefined default), never on user input.
func NewRegistry() (*Registry, error) {
	reg := &Registry{byID: make(map[string]Template, len(catalogSpecs))}
	for _, spec := range catalogSpecs {
		body, err := templateFiles.ReadFile("assets/" + spec.assetName)
		if err != nil {
			return nil, fmt.Errorf("load template asset %s: %w", spec.assetName, err)
		}
		required := make([]string, len(spec.required))
		copy(required, spec.required)
		sort.Strings(required)
		reg.byID[spec.id] = Template{
			ID:                   spec.id,
			DisplayName:          spec.displayName,
			Category:             spec.category,
			Body:                 string(body),
			RequiredPlaceholders: required,
		}
		reg.order = append(reg.order, spec.id)
	}
	if _, ok := reg.byID[DefaultTemplateID]; !ok {
		return nil, fmt.Errorf("default template %s missing from catalog", DefaultTemplateID)
	}
	return reg, nil
}

// GetByID returns the template for id, falling back to the default template
// when the id is unknown.
func (r *Registry) GetByID(id string) Template {
	if tpl, ok := r.byID[id]; ok {
		return tpl
	}
	return r.byID[DefaultTemplateID]
}

// List returns all templates in catalog order.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
