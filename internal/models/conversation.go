// internal/models/conversation.go
package models

// Conversation is the external messaging aggregate. The lifecycle engine only
// ever flips IsHired and IsRejected; it never creates or deletes one.
type Conversation struct {
	ID          string `json:"id"`
	JobID       string `json:"jobId"`
	CandidateID string `json:"candidateId"`
	IsApplied   bool   `json:"isApplied"`
	IsInvited   bool   `json:"isInvited"`
	IsHired     bool   `json:"isHired"`
	IsRejected  bool   `json:"isRejected"`
}
