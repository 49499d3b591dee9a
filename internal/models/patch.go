// internal/models/patch.go
package models

// JobPatch is a field-level update to a posting. Nil pointers mean "leave as
// is"; slices replace wholesale when non-nil. The engine propagates a patch to
// the source job and every translated sibling, re-translating only the content
// fields that actually changed.
type JobPatch struct {
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	JobType           *string    `json:"jobType,omitempty"`
	Skills            []string   `json:"skills,omitempty"`
	Address           *string    `json:"address,omitempty"`
	WalkInAddr        *string    `json:"walkInAddress,omitempty"`
	PayRateLabel      *string    `json:"payRateLabel,omitempty"`
	NumberOfPositions *int       `json:"numberOfPositions,omitempty"`
	IsPremium         *bool      `json:"isPremium,omitempty"`
	DisplayLocations  []GeoPoint `json:"displayLocations,omitempty"`

	// RequestedLanguages is the full set of sibling languages the employer
	// wants after this update. The engine charges only the delta against the
	// languages that already exist.
	RequestedLanguages []string `json:"requestedLanguages,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *JobPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.JobType == nil &&
		p.Skills == nil && p.Address == nil && p.WalkInAddr == nil &&
		p.PayRateLabel == nil && p.NumberOfPositions == nil &&
		p.IsPremium == nil && p.DisplayLocations == nil
}
