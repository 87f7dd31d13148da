package typeset

import (
	"fmt"
	"strings"

	"resume-typeset/resume/model"
)

// deriveBlocks builds one typeset-ready text block per placeholder from a
// content snapshot. Every user-supplied value passes through Escape before it
// is embedded in structural markup.
func deriveBlocks(content model.ResumeContent) map[string]string {
	return map[string]string{
		"FULL_NAME":            Escape(strings.TrimSpace(content.Header.Name)),
		"HEADLINE":             Escape(strings.TrimSpace(content.Header.Title)),
		"CONTACT_LINE":         contactLine(content.Header),
		"PROFESSIONAL_SUMMARY": summaryBlock(content.Summary),
		"SKILLS":               skillsBlock(content.Skills),
		"EXPERIENCE":           experienceBlock(content.Experience),
		"PROJECTS":             projectsBlock(content.Projects),
		"EDUCATION":            educationBlock(content.Education),
		"CERTIFICATIONS":       certificationsBlock(content.Certifications),
		"LANGUAGES":            languagesBlock(content.SpokenLanguages),
	}
}

func contactLine(header model.Header) string {
	var parts []string
	for _, v := range []string{header.Email, header.Phone, header.Location} {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			parts = append(parts, Escape(trimmed))
		}
	}
	for _, link := range header.Links {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			parts = append(parts, fmt.Sprintf(`\url{%s}`, sanitizeURL(trimmed)))
		}
	}
	return strings.Join(parts, ` \ \textbar\ `)
}

// sanitizeURL strips characters that would terminate or escape the \url
// group. URLs do not go through the general escape table because \url reads
// its argument verbatim.
func sanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '\\', '%', ' ', '\n', '\t':
			return -1
		default:
			return r
		}
	}, raw)
}

func summaryBlock(lines []string) string {
	var out []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, Escape(trimmed))
		}
	}
	return strings.Join(out, "\n\n")
}

func skillsBlock(skills model.Skills) string {
	var b strings.Builder
	writeCategory := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		escaped := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				escaped = append(escaped, Escape(trimmed))
			}
		}
		if len(escaped) == 0 {
			return
		}
		fmt.Fprintf(&b, "\\textbf{%s:} %s\\\\\n", label, strings.Join(escaped, ", "))
	}
	writeCategory("Languages", skills.Languages)
	writeCategory("Frameworks", skills.Frameworks)
	writeCategory("Databases", skills.Databases)
	writeCategory("Cloud \\& DevOps", skills.CloudDevOps)
	writeCategory("Observability", skills.Observability)
	writeCategory("Tools", skills.Tools)
	return strings.TrimSuffix(b.String(), "\\\\\n")
}

func experienceBlock(entries []model.Experience) string {
	var sections []string
	for _, exp := range entries {
		var b strings.Builder
		heading := joinNonEmpty(" --- ", Escape(strings.TrimSpace(exp.Role)), Escape(strings.TrimSpace(exp.Company)))
		if heading == "" {
			continue
		}
		fmt.Fprintf(&b, "\\textbf{%s}", heading)
		if r := dateRange(exp.Start, exp.End); r != "" {
			fmt.Fprintf(&b, " \\hfill %s", r)
		}
		b.WriteString("\n")
		if loc := strings.TrimSpace(exp.Location); loc != "" {
			fmt.Fprintf(&b, "\\\\ \\textit{%s}\n", Escape(loc))
		}
		b.WriteString(highlightList(exp.Highlights))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\\medskip\n\n")
}

func projectsBlock(entries []model.Project) string {
	var sections []string
	for _, project := range entries {
		name := strings.TrimSpace(project.Name)
		if name == "" {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "\\textbf{%s}", Escape(name))
		if r := dateRange(project.Start, project.End); r != "" {
			fmt.Fprintf(&b, " \\hfill %s", r)
		}
		b.WriteString("\n")
		if desc := strings.TrimSpace(project.Description); desc != "" {
			fmt.Fprintf(&b, "\\\\ %s\n", Escape(desc))
		}
		b.WriteString(highlightList(project.Highlights))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\\medskip\n\n")
}

func educationBlock(entries []model.Education) string {
	var sections []string
	for _, edu := range entries {
		heading := joinNonEmpty(", ", Escape(strings.TrimSpace(edu.Degree)), Escape(strings.TrimSpace(edu.Field)))
		institution := Escape(strings.TrimSpace(edu.Institution))
		if heading == "" && institution == "" {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "\\textbf{%s}", institution)
		if r := dateRange(edu.Start, edu.End); r != "" {
			fmt.Fprintf(&b, " \\hfill %s", r)
		}
		b.WriteString("\n")
		if heading != "" {
			fmt.Fprintf(&b, "\\\\ %s\n", heading)
		}
		b.WriteString(highlightList(edu.Highlights))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\\medskip\n\n")
}

func certificationsBlock(entries []model.Certification) string {
	var items []string
	for _, cert := range entries {
		name := strings.TrimSpace(cert.Name)
		if name == "" {
			continue
		}
		line := Escape(name)
		if issuer := strings.TrimSpace(cert.Issuer); issuer != "" {
			line += " --- " + Escape(issuer)
		}
		if date := strings.TrimSpace(cert.Date); date != "" {
			line += " (" + Escape(date) + ")"
		}
		items = append(items, "\\item "+line)
	}
	if len(items) == 0 {
		return ""
	}
	return "\\begin{itemize}\n" + strings.Join(items, "\n") + "\n\\end{itemize}"
}

func languagesBlock(languages []string) string {
	var escaped []string
	for _, lang := range languages {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			escaped = append(escaped, Escape(trimmed))
		}
	}
	return strings.Join(escaped, ", ")
}

func highlightList(highlights []string) string {
	var items []string
	for _, h := range highlights {
		if trimmed := strings.TrimSpace(h); trimmed != "" {
			items = append(items, "\\item "+Escape(trimmed))
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "\\begin{itemize}\n" + strings.Join(items, "\n") + "\n\\end{itemize}\n"
}

func dateRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return Escape(start)
	case start == "":
		return Escape(end)
	default:
		return Escape(start) + "--" + Escape(end)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
