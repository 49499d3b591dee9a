// internal/workers/job/update-job/models.go
package updatejob

import "jobcore/internal/models"

type Input struct {
	JobID             string          `json:"jobId"`
	EmployerID        string          `json:"employerId"`
	EmployerCountry   string          `json:"employerCountry"`
	IsCommunityMember bool            `json:"isCommunityMember"`
	Patch             models.JobPatch `json:"patch"`
}

type Output struct {
	JobID            string   `json:"jobId"`
	NewSiblingJobIDs []string `json:"newSiblingJobIds,omitempty"`
	Status           string   `json:"status"`
}
