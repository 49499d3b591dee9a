// internal/workers/job/republish-job/models.go
package republishjob

type Input struct {
	JobID                string   `json:"jobId"`
	EmployerID           string   `json:"employerId"`
	EmployerCountry      string   `json:"employerCountry"`
	IsCommunityMember    bool     `json:"isCommunityMember"`
	NumberOfPositions    int      `json:"numberOfPositions,omitempty"`
	TranslationLanguages []string `json:"translationLanguages,omitempty"`
}

type Output struct {
	NewJobID      string   `json:"newJobId"`
	SiblingJobIDs []string `json:"siblingJobIds,omitempty"`
	Status        string   `json:"status"`
	Queued        bool     `json:"queued"`
	UnderReview   bool     `json:"underReview"`
}
