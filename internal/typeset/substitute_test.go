package typeset

import (
	"errors"
	"strings"
	"testing"

	"resume-typeset/internal/templates"
	"resume-typeset/resume/model"
)

func fullContent() model.ResumeContent {
	return model.ResumeContent{
		Header: model.Header{
			Name:     "Ada Lovelace",
			Title:    "Analytical Engineer",
			Email:    "ada@example.com",
			Phone:    "+44 555 0100",
			Location: "London",
			Links:    []string{"https://example.com/ada"},
		},
		Summary: []string{"Pioneer of computing."},
		Skills: model.Skills{
			Languages: []string{"Ada", "Go"},
			Tools:     []string{"Difference Engine"},
		},
		Experience: []model.Experience{
			{Company: "Analytical Engines Ltd", Role: "Programmer", Start: "2020-01", End: "Present",
				Highlights: []string{"Wrote the first program."}},
		},
		Education: []model.Education{
			{Institution: "Home Tutoring", Degree: "Mathematics", Start: "2010-01", End: "2015-06"},
		},
		Certifications: []model.Certification{
			{Name: "Charter Member", Issuer: "Royal Society", Date: "2021-05"},
		},
		SpokenLanguages: []string{"English", "French"},
	}
}

func TestSubstituteFillsEveryPlaceholder(t *testing.T) {
	reg, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for _, tpl := range reg.List() {
		source, err := Substitute(tpl, fullContent())
		if err != nil {
			t.Fatalf("template %s: substitute failed: %v", tpl.ID, err)
		}
		if strings.Contains(source, "{{") {
			t.Fatalf("template %s: unresolved token in output", tpl.ID)
		}
		if !strings.Contains(source, "Ada Lovelace") {
			t.Fatalf("template %s: name missing from output", tpl.ID)
		}
	}
}

func TestSubstituteMissingRequiredBlock(t *testing.T) {
	reg, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	content := fullContent()
	content.Summary = nil

	// modern_ats_v1 requires PROFESSIONAL_SUMMARY.
	_, err = Substitute(reg.GetByID("modern_ats_v1"), content)
	if !errors.Is(err, ErrTemplate) {
		t.Fatalf("expected ErrTemplate, got %v", err)
	}
	if !strings.Contains(err.Error(), "PROFESSIONAL_SUMMARY") {
		t.Fatalf("error should name the placeholder: %v", err)
	}
}

func TestSubstituteEscapesUserContent(t *testing.T) {
	reg, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	content := fullContent()
	content.Header.Name = `Ada & Charles #1 {50%}`
	content.Experience[0].Highlights[0] = `Improved $ throughput by 50% via \input tricks`

	source, err := Substitute(reg.GetByID("modern_ats_v1"), content)
	if err != nil {
		t.Fatalf("substitute failed: %v", err)
	}
	if !strings.Contains(source, `Ada \& Charles \#1 \{50\%\}`) {
		t.Fatalf("header name not escaped:\n%s", source)
	}
	if strings.Contains(source, `\input tricks`) {
		t.Fatalf("raw control sequence leaked into source")
	}
	if !strings.Contains(source, `\textbackslash{}input`) {
		t.Fatalf("backslash not escaped in highlight")
	}
}

// Substituting every escapable character, alone, into every placeholder of
// every registered template must still yield structurally sound source:
// balanced groups and no unresolved tokens.
func TestSubstituteEscapableCharactersStayBalanced(t *testing.T) {
	reg, err := templates.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	chars := []string{`\`, `{`, `}`, `$`, `&`, `#`, `_`, `%`, `~`, `^`, `<`, `>`, `|`, `"`}
	for _, tpl := range reg.List() {
		for _, ch := range chars {
			content := fullContent()
			content.Header.Name = "name " + ch
			content.Header.Title = ch
			content.Summary = []string{ch}
			content.Experience[0].Company = ch
			content.Experience[0].Highlights = []string{ch}
			content.Skills.Languages = []string{ch}
			content.Education[0].Degree = ch

			source, err := Substitute(tpl, content)
			if err != nil {
				t.Fatalf("template %s char %q: substitute failed: %v", tpl.ID, ch, err)
			}
			if strings.Contains(source, "{{") {
				t.Fatalf("template %s char %q: unresolved token", tpl.ID, ch)
			}
			if depth := braceDepth(source); depth != 0 {
				t.Fatalf("template %s char %q: unbalanced groups (depth %d)", tpl.ID, ch, depth)
			}
		}
	}
}

// braceDepth walks the source the way the compiler tokenizes groups: an
// escaped brace (\{ or \}) is literal, everything else opens or closes.
func braceDepth(source string) int {
	depth := 0
	escaped := false
	for _, r := range source {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}
