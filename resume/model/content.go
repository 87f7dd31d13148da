package model

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ResumeContent is the canonical structured content a render works from.
// It is owned by the editing session; rendering and fingerprinting always
// operate on an immutable Snapshot, never on the live aggregate.
type ResumeContent struct {
	Header          Header          `json:"header"`
	Summary         []string        `json:"summary"`
	Skills          Skills          `json:"skills"`
	Experience      []Experience    `json:"experience"`
	Projects        []Project       `json:"projects"`
	Education       []Education     `json:"education"`
	Achievements    []Achievement   `json:"achievements"`
	Certifications  []Certification `json:"certifications"`
	SpokenLanguages []string        `json:"spokenLanguages"`
}

// Header captures top-of-resume contact and identity details.
type Header struct {
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Location      string   `json:"location"`
	Links         []string `json:"links"`
	Nationality   string   `json:"nationality,omitempty"`
	MaritalStatus string   `json:"maritalStatus,omitempty"`
}

// Skills groups skills by category.
type Skills struct {
	Languages     []string `json:"languages"`
	Frameworks    []string `json:"frameworks"`
	Databases     []string `json:"databases"`
	CloudDevOps   []string `json:"cloudDevOps"`
	Observability []string `json:"observability"`
	Tools         []string `json:"tools"`
}

// Empty reports whether no skill category has entries.
func (s Skills) Empty() bool {
	return len(s.Languages) == 0 && len(s.Frameworks) == 0 && len(s.Databases) == 0 &&
		len(s.CloudDevOps) == 0 && len(s.Observability) == 0 && len(s.Tools) == 0
}

// Experience represents a work history entry. Entry order is meaningful.
type Experience struct {
	ID         string   `json:"id"`
	Company    string   `json:"company"`
	Role       string   `json:"role"`
	Location   string   `json:"location"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Highlights []string `json:"highlights"`
}

// Project represents a notable project. Entry order is meaningful.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Highlights  []string `json:"highlights"`
}

// Education represents an education entry. Entry order is meaningful.
type Education struct {
	Institution string   `json:"institution"`
	Degree      string   `json:"degree"`
	Field       string   `json:"field"`
	Location    string   `json:"location"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Highlights  []string `json:"highlights"`
}

// Achievement represents a discrete achievement.
type Achievement struct {
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Highlights []string `json:"highlights"`
}

// Certification represents a certification entry.
type Certification struct {
	Name    string `json:"name"`
	Issuer  string `json:"issuer"`
	Date    string `json:"date"`
	Expires string `json:"expires"`
}

// Validate enforces required fields and formatting rules for ResumeContent.
func (c ResumeContent) Validate() error {
	if strings.TrimSpace(c.Header.Name) == "" {
		return errors.New("fullName is required")
	}
	if strings.TrimSpace(c.Header.Nationality) != "" || strings.TrimSpace(c.Header.MaritalStatus) != "" {
		return errors.New("sensitive fields like nationality or maritalStatus are not allowed")
	}
	for i, link := range c.Header.Links {
		if !isFullURL(strings.TrimSpace(link)) {
			return fmt.Errorf("links[%d] must be a full URL", i)
		}
	}
	for i, exp := range c.Experience {
		if err := validateDateField(exp.Start, fmt.Sprintf("experience[%d].start", i)); err != nil {
			return err
		}
		if err := validateDateField(exp.End, fmt.Sprintf("experience[%d].end", i)); err != nil {
			return err
		}
	}
	for i, project := range c.Projects {
		if err := validateDateField(project.Start, fmt.Sprintf("projects[%d].start", i)); err != nil {
			return err
		}
		if err := validateDateField(project.End, fmt.Sprintf("projects[%d].end", i)); err != nil {
			return err
		}
	}
	for i, edu := range c.Education {
		if err := validateDateField(edu.Start, fmt.Sprintf("education[%d].start", i)); err != nil {
			return err
		}
		if err := validateDateField(edu.End, fmt.Sprintf("education[%d].end", i)); err != nil {
			return err
		}
	}
	for i, achievement := range c.Achievements {
		if err := validateDateField(achievement.Date, fmt.Sprintf("achievements[%d].date", i)); err != nil {
			return err
		}
	}
	for i, cert := range c.Certifications {
		if err := validateDateField(cert.Date, fmt.Sprintf("certifications[%d].date", i)); err != nil {
			return err
		}
		if err := validateDateField(cert.Expires, fmt.Sprintf("certifications[%d].expires", i)); err != nil {
			return err
		}
	}
	return nil
}

// RenderReady reports whether the mandatory render fields are present:
// a name plus at least one contact channel.
func (c ResumeContent) RenderReady() bool {
	if strings.TrimSpace(c.Header.Name) == "" {
		return false
	}
	return strings.TrimSpace(c.Header.Email) != "" || strings.TrimSpace(c.Header.Phone) != ""
}

// Snapshot returns a deep copy decoupled from the live aggregate. Hashing and
// rendering always consume a snapshot so concurrent edits cannot leak into an
// in-flight render.
func (c ResumeContent) Snapshot() ResumeContent {
	out := c
	out.Header.Links = copyStrings(c.Header.Links)
	out.Summary = copyStrings(c.Summary)
	out.SpokenLanguages = copyStrings(c.SpokenLanguages)
	out.Skills = Skills{
		Languages:     copyStrings(c.Skills.Languages),
		Frameworks:    copyStrings(c.Skills.Frameworks),
		Databases:     copyStrings(c.Skills.Databases),
		CloudDevOps:   copyStrings(c.Skills.CloudDevOps),
		Observability: copyStrings(c.Skills.Observability),
		Tools:         copyStrings(c.Skills.Tools),
	}
	out.Experience = make([]Experience, len(c.Experience))
	for i, exp := range c.Experience {
		exp.Highlights = copyStrings(exp.Highlights)
		out.Experience[i] = exp
	}
	out.Projects = make([]Project, len(c.Projects))
	for i, project := range c.Projects {
		project.Highlights = copyStrings(project.Highlights)
		out.Projects[i] = project
	}
	out.Education = make([]Education, len(c.Education))
	for i, edu := range c.Education {
		edu.Highlights = copyStrings(edu.Highlights)
		out.Education[i] = edu
	}
	out.Achievements = make([]Achievement, len(c.Achievements))
	for i, achievement := range c.Achievements {
		achievement.Highlights = copyStrings(achievement.Highlights)
		out.Achievements[i] = achievement
	}
	out.Certifications = make([]Certification, len(c.Certifications))
	copy(out.Certifications, c.Certifications)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

var resumeDatePattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func isFullURL(value string) bool {
	if value == "" {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

func validateDateField(value, field string) error {
	if value == "" || value == "Present" {
		return nil
	}
	if !resumeDatePattern.MatchString(value) {
		return fmt.Errorf("%s must be YYYY-MM or Present", field)
	}
	return nil
}
