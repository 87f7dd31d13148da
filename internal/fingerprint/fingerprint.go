// Package fingerprint computes the deterministic content hash that drives
// cache-hit decisions. A fingerprint is a pure function of the render-relevant
// content fields, the template identity, and the optional job target; it never
// reads the clock or any random source.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"resume-typeset/resume/model"
)

// Compute hashes a content snapshot against a template and optional job
// target. Fields where list order carries meaning (experience, projects,
// education, summary lines, achievements) are hashed in order; fields where
// order is presentation-irrelevant (skills within a category, certifications,
// spoken languages, header links) are sorted first so reordering them cannot
// force a recompile. Insignificant whitespace is collapsed everywhere.
func Compute(content model.ResumeContent, templateID string, target *model.JobTarget) string {
	h := sha256.New()

	writeField(h, "template", templateID)

	writeField(h, "name", content.Header.Name)
	writeField(h, "title", content.Header.Title)
	writeField(h, "email", content.Header.Email)
	writeField(h, "phone", content.Header.Phone)
	writeField(h, "location", content.Header.Location)
	writeSet(h, "links", content.Header.Links)

	writeList(h, "summary", content.Summary)

	writeSet(h, "skills.languages", content.Skills.Languages)
	writeSet(h, "skills.frameworks", content.Skills.Frameworks)
	writeSet(h, "skills.databases", content.Skills.Databases)
	writeSet(h, "skills.cloud", content.Skills.CloudDevOps)
	writeSet(h, "skills.observability", content.Skills.Observability)
	writeSet(h, "skills.tools", content.Skills.Tools)

	writeCount(h, "experience", len(content.Experience))
	for _, exp := range content.Experience {
		writeField(h, "exp.company", exp.Company)
		writeField(h, "exp.role", exp.Role)
		writeField(h, "exp.location", exp.Location)
		writeField(h, "exp.start", exp.Start)
		writeField(h, "exp.end", exp.End)
		writeList(h, "exp.highlights", exp.Highlights)
	}

	writeCount(h, "projects", len(content.Projects))
	for _, project := range content.Projects {
		writeField(h, "project.name", project.Name)
		writeField(h, "project.description", project.Description)
		writeField(h, "project.start", project.Start)
		writeField(h, "project.end", project.End)
		writeList(h, "project.highlights", project.Highlights)
	}

	writeCount(h, "education", len(content.Education))
	for _, edu := range content.Education {
		writeField(h, "edu.institution", edu.Institution)
		writeField(h, "edu.degree", edu.Degree)
		writeField(h, "edu.field", edu.Field)
		writeField(h, "edu.location", edu.Location)
		writeField(h, "edu.start", edu.Start)
		writeField(h, "edu.end", edu.End)
		writeList(h, "edu.highlights", edu.Highlights)
	}

	writeCount(h, "achievements", len(content.Achievements))
	for _, achievement := range content.Achievements {
		writeField(h, "achievement.title", achievement.Title)
		writeField(h, "achievement.date", achievement.Date)
		writeList(h, "achievement.highlights", achievement.Highlights)
	}

	certs := make([]string, 0, len(content.Certifications))
	for _, cert := range content.Certifications {
		certs = append(certs, strings.Join([]string{cert.Name, cert.Issuer, cert.Date, cert.Expires}, "\x1f"))
	}
	writeSet(h, "certifications", certs)

	writeSet(h, "spokenLanguages", content.SpokenLanguages)

	// OptimizedAt is deliberately excluded: it is wall-clock metadata.
	if target != nil {
		writeField(h, "job.url", target.JobURL)
		writeField(h, "job.title", target.JobTitle)
		writeField(h, "job.company", target.CompanyName)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeField appends a labeled, length-prefixed, whitespace-normalized value
// to the hash stream. Length prefixes keep adjacent fields unambiguous.
func writeField(h hash.Hash, label, value string) {
	writeRaw(h, label)
	writeRaw(h, normalize(value))
}

func writeList(h hash.Hash, label string, values []string) {
	writeCount(h, label, len(values))
	for _, v := range values {
		writeRaw(h, normalize(v))
	}
}

// writeSet hashes values independent of their incoming order.
func writeSet(h hash.Hash, label string, values []string) {
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		normalized = append(normalized, normalize(v))
	}
	sort.Strings(normalized)
	writeCount(h, label, len(normalized))
	for _, v := range normalized {
		writeRaw(h, v)
	}
}

func writeCount(h hash.Hash, label string, n int) {
	writeRaw(h, label)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeRaw(h hash.Hash, value string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(value)))
	h.Write(buf[:])
	h.Write([]byte(value))
}

// normalize collapses insignificant whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
