// internal/workers/job/archive-jobs/models.go
package archivejobs

import "jobcore/internal/lifecycle"

type Input struct {
	JobIDs     []string `json:"jobIds"`
	EmployerID string   `json:"employerId"`
}

// Output for a batch carries per-id outcomes so one bad id never sinks the
// rest; a single-id request fails the task instead.
type Output struct {
	Outcomes      []lifecycle.ArchiveOutcome `json:"outcomes"`
	ArchivedCount int                        `json:"archivedCount"`
}
