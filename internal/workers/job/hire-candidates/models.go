// internal/workers/job/hire-candidates/models.go
package hirecandidates

type Input struct {
	JobID        string   `json:"jobId"`
	EmployerID   string   `json:"employerId"`
	CandidateIDs []string `json:"candidateIds"`
}

// Output reports which candidates were newly recorded. Archived signals that
// the last open position was filled and the whole family went terminal.
type Output struct {
	NewlyHired         []string `json:"newlyHired"`
	RemainingPositions int      `json:"remainingPositions"`
	Archived           bool     `json:"archived"`
	ReleasedJobID      string   `json:"releasedJobId,omitempty"`
}
