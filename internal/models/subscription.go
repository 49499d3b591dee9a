// internal/models/subscription.go
package models

import "time"

// Feature names the consumable entitlements tracked per subscription.
type Feature string

const (
	FeatureJobs            Feature = "numberOfJobs"
	FeatureJobTranslations Feature = "numberOfJobTranslations"
	FeatureUsers           Feature = "numberOfUsers"
	FeatureAllLocalities   Feature = "jobsInAllLocalities"
)

// FeatureBalance is the per-feature quota tuple of a subscription. In wallet
// mode Count is reporting-only; gating happens on WalletAmount.
type FeatureBalance struct {
	Feature     Feature `json:"feature"`
	Count       int     `json:"count"`
	IsUnlimited bool    `json:"isUnlimited"`
	IsFree      bool    `json:"isFree"`
	IsIncluded  bool    `json:"isIncluded"`
}

// Subscription is one entitlement ledger row. An employer has at most one
// active row; plan changes supersede the row instead of mutating it.
type Subscription struct {
	ID         string `json:"id"`
	EmployerID string `json:"employerId"`
	Country    string `json:"country"`
	PackageID  string `json:"packageId"`

	IsWallet     bool    `json:"isWallet"`
	WalletAmount float64 `json:"walletAmount"`
	IsActive     bool    `json:"isActive"`

	Features map[Feature]FeatureBalance `json:"features"`

	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Balance returns the tuple for a feature, zero-valued when the plan does not
// carry it.
func (s *Subscription) Balance(f Feature) FeatureBalance {
	if s.Features == nil {
		return FeatureBalance{Feature: f}
	}
	return s.Features[f]
}

// IsFreeDomestic reports whether the plan is the free, single-country tier.
// Terminal transitions on such plans do not return a posting slot.
func (s *Subscription) IsFreeDomestic() bool {
	jobs := s.Balance(FeatureJobs)
	return jobs.IsFree && !s.IsWallet
}

// Package is the country-scoped plan template. Read-only reference data owned
// by the external catalog.
type Package struct {
	ID       string                     `json:"id"`
	Country  string                     `json:"country"`
	Name     string                     `json:"name"`
	IsFree   bool                       `json:"isFree"`
	IsWallet bool                       `json:"isWallet"`
	Limits   map[Feature]FeatureBalance `json:"limits"`
}

// Pricing is the country-scoped rate card entry: BasePrice buys Count units,
// so the unit price is BasePrice / Count.
type Pricing struct {
	Country   string  `json:"country"`
	Feature   Feature `json:"feature"`
	BasePrice float64 `json:"basePrice"`
	Count     int     `json:"count"`
}

// UnitPrice returns the per-unit cost. Count below one means the rate card row
// is malformed; callers treat that as an upstream failure.
func (p Pricing) UnitPrice() float64 {
	if p.Count <= 0 {
		return 0
	}
	return p.BasePrice / float64(p.Count)
}
