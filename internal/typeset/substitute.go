package typeset

import (
	"fmt"
	"strings"

	"resume-typeset/internal/templates"
	"resume-typeset/resume/model"
)

// Substitute fills every placeholder of tpl with derived, escaped content
// blocks from the snapshot. A required placeholder with no derivable data is
// a template error; so is any token left unresolved after substitution.
func Substitute(tpl templates.Template, content model.ResumeContent) (string, error) {
	blocks := deriveBlocks(content)

	for _, name := range tpl.RequiredPlaceholders {
		block, ok := blocks[name]
		if !ok {
			return "", fmt.Errorf("%w: template %s requires unknown placeholder %s", ErrTemplate, tpl.ID, name)
		}
		if strings.TrimSpace(block) == "" {
			return "", fmt.Errorf("%w: no content for required placeholder %s", ErrTemplate, name)
		}
	}

	source := tpl.Body
	for name, block := range blocks {
		source = strings.ReplaceAll(source, "{{"+name+"}}", block)
	}

	if idx := strings.Index(source, "{{"); idx != -1 {
		return "", fmt.Errorf("%w: unresolved token near %q", ErrTemplate, tokenSnippet(source, idx))
	}
	return source, nil
}

func tokenSnippet(source string, pos int) string {
	end := pos + 40
	if end > len(source) {
		end = len(source)
	}
	return source[pos:end]
}
