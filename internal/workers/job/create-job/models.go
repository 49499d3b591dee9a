// internal/workers/job/create-job/models.go
package createjob

import "jobcore/internal/models"

type Input struct {
	EmployerID           string          `json:"employerId"`
	EmployerCountry      string          `json:"employerCountry"`
	IsCommunityMember    bool            `json:"isCommunityMember"`
	Job                  models.JobDraft `json:"job"`
	TranslationLanguages []string        `json:"translationLanguages,omitempty"`
}

// Output reports the persisted family. Status mirrors the derived job state
// so the workflow can branch without re-deriving flags.
type Output struct {
	JobID         string   `json:"jobId"`
	SiblingJobIDs []string `json:"siblingJobIds,omitempty"`
	Status        string   `json:"status"`
	Queued        bool     `json:"queued"`
	UnderReview   bool     `json:"underReview"`
}
