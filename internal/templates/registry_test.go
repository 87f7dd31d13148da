package templates

import (
	"strings"
	"testing"
)

func TestNewRegistryLoadsCatalog(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if len(reg.List()) < 2 {
		t.Fatalf("expected at least 2 templates, got %d", len(reg.List()))
	}
	for _, tpl := range reg.List() {
		if strings.TrimSpace(tpl.Body) == "" {
			t.Fatalf("template %s has empty body", tpl.ID)
		}
		if len(tpl.RequiredPlaceholders) == 0 {
			t.Fatalf("template %s declares no required placeholders", tpl.ID)
		}
		for _, name := range tpl.RequiredPlaceholders {
			token := "{{" + name + "}}"
			if !strings.Contains(tpl.Body, token) {
				t.Fatalf("template %s body missing required token %s", tpl.ID, token)
			}
		}
	}
}

func TestGetByIDFallsBackToDefault(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	tpl := reg.GetByID("no_such_template")
	if tpl.ID != DefaultTemplateID {
		t.Fatalf("expected default template %s, got %s", DefaultTemplateID, tpl.ID)
	}

	classic := reg.GetByID("classic_serif_v1")
	if classic.ID != "classic_serif_v1" {
		t.Fatalf("expected classic_serif_v1, got %s", classic.ID)
	}
}
