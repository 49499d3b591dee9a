// internal/models/job.go
package models

import (
	"strings"
	"time"
)

// JobStatus is the explicit lifecycle state derived from the stored flags.
// Flags stay the persisted representation; status is computed once at the
// boundary so transition checks can be exhaustive.
type JobStatus string

const (
	StatusUnderReview JobStatus = "under_review"
	StatusActive      JobStatus = "active"
	StatusQueued      JobStatus = "queued"
	StatusClosed      JobStatus = "closed"
	StatusArchived    JobStatus = "archived"
	StatusExpired     JobStatus = "expired"
)

// Job represents a posting owned by an employer. A translated sibling carries
// SourceJobID and never has siblings of its own.
type Job struct {
	ID         string `json:"id"`
	EmployerID string `json:"employerId"`
	Country    string `json:"country"`

	Title        string   `json:"title"`
	Description  string   `json:"description"`
	JobType      string   `json:"jobType"`
	Skills       []string `json:"skills"`
	SkillsLower  []string `json:"skillsLower"`
	Address      string   `json:"address"`
	WalkInAddr   string   `json:"walkInAddress,omitempty"`
	PayRateLabel string   `json:"payRateLabel"`

	IsVisible     bool   `json:"isVisible"`
	InQueue       bool   `json:"inQueue"`
	IsUnderReview bool   `json:"isUnderReview"`
	ReviewReason  string `json:"reviewReason,omitempty"`
	IsClosed      bool   `json:"isClosed"`
	IsArchived    bool   `json:"isArchived"`
	IsExpired     bool   `json:"isExpired"`

	NumberOfPositions int      `json:"numberOfPositions"`
	HiredCandidateIDs []string `json:"hiredCandidateIds"`

	SourceLanguage     string   `json:"sourceLanguage"`
	IsTranslated       bool     `json:"isTranslated"`
	TranslatedLanguage string   `json:"translatedLanguage"`
	SourceJobID        string   `json:"sourceJobId,omitempty"`
	TranslatedJobIDs   []string `json:"translatedJobs,omitempty"`

	IsPremium        bool       `json:"isPremium"`
	DisplayLocations []GeoPoint `json:"displayLocations"`

	TotalViews    int      `json:"totalViews"`
	UniqueViewers []string `json:"uniqueViews"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GeoPoint is a display coordinate for the job card. Multi-locality postings
// carry one entry per purchased locality.
type GeoPoint struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Status derives the lifecycle state. Archived wins over everything so that a
// family in terminal state never reads as Active through a stale flag combo.
func (j *Job) Status() JobStatus {
	switch {
	case j.IsArchived:
		return StatusArchived
	case j.IsClosed:
		return StatusClosed
	case j.IsExpired:
		return StatusExpired
	case j.IsUnderReview:
		return StatusUnderReview
	case j.InQueue:
		return StatusQueued
	default:
		return StatusActive
	}
}

// IsHired reports whether the candidate is already in the hired set.
func (j *Job) IsHired(candidateID string) bool {
	for _, id := range j.HiredCandidateIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// NormalizeSkills lowercases the skill list for case-insensitive matching.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out
}

// JobDraft is the pre-persistence shape of a job. Create and Republish both
// consume drafts; Clone produces one from an archived job.
type JobDraft struct {
	EmployerID        string     `json:"employerId"`
	Country           string     `json:"country"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	JobType           string     `json:"jobType"`
	Skills            []string   `json:"skills"`
	Address           string     `json:"address"`
	WalkInAddr        string     `json:"walkInAddress,omitempty"`
	PayRateLabel      string     `json:"payRateLabel"`
	NumberOfPositions int        `json:"numberOfPositions"`
	SourceLanguage    string     `json:"sourceLanguage"`
	IsPremium         bool       `json:"isPremium"`
	DisplayLocations  []GeoPoint `json:"displayLocations"`
}
