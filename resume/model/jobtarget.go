package model

import "time"

// JobTarget records that content was tailored for a specific job posting.
// It rides along with a compiled artifact and participates in the render
// fingerprint through its posting identity fields; OptimizedAt is metadata
// only and must never reach a fingerprint.
type JobTarget struct {
	JobURL      string    `json:"jobUrl"`
	JobTitle    string    `json:"jobTitle"`
	CompanyName string    `json:"companyName"`
	OptimizedAt time.Time `json:"optimizedAt"`
}
