// internal/models/job_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Status Derivation Tests
// ==========================

func TestStatus_Precedence(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want JobStatus
	}{
		{"no flags", Job{}, StatusActive},
		{"queued", Job{InQueue: true}, StatusQueued},
		{"under review", Job{IsUnderReview: true}, StatusUnderReview},
		{"under review beats queued", Job{IsUnderReview: true, InQueue: true}, StatusUnderReview},
		{"expired beats review", Job{IsExpired: true, IsUnderReview: true}, StatusExpired},
		{"closed beats expired", Job{IsClosed: true, IsExpired: true}, StatusClosed},
		{"archived beats everything", Job{IsArchived: true, IsClosed: true, IsExpired: true, IsUnderReview: true, InQueue: true}, StatusArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.Status())
		})
	}
}

// ==========================
// Hire Set Tests
// ==========================

func TestIsHired(t *testing.T) {
	job := Job{HiredCandidateIDs: []string{"cand-1", "cand-2"}}

	assert.True(t, job.IsHired("cand-1"))
	assert.False(t, job.IsHired("cand-3"))
	assert.False(t, (&Job{}).IsHired("cand-1"))
}

// ==========================
// Skill Normalization Tests
// ==========================

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{" Driving ", "NAVIGATION", "", "  "})
	assert.Equal(t, []string{"driving", "navigation"}, got)
}

// ==========================
// Subscription Tests
// ==========================

func TestIsFreeDomestic(t *testing.T) {
	free := Subscription{Features: map[Feature]FeatureBalance{
		FeatureJobs: {Feature: FeatureJobs, IsFree: true},
	}}
	assert.True(t, free.IsFreeDomestic())

	wallet := Subscription{IsWallet: true, Features: map[Feature]FeatureBalance{
		FeatureJobs: {Feature: FeatureJobs, IsFree: true},
	}}
	assert.False(t, wallet.IsFreeDomestic())

	paid := Subscription{Features: map[Feature]FeatureBalance{
		FeatureJobs: {Feature: FeatureJobs, Count: 10},
	}}
	assert.False(t, paid.IsFreeDomestic())
}

func TestBalance_MissingFeatureIsZero(t *testing.T) {
	var sub Subscription
	b := sub.Balance(FeatureJobTranslations)
	assert.Equal(t, FeatureJobTranslations, b.Feature)
	assert.Zero(t, b.Count)
	assert.False(t, b.IsUnlimited)
}
