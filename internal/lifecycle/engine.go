// internal/lifecycle/engine.go
// Package lifecycle orchestrates job state transitions: entitlement gating,
// family persistence, conversation cascades, and side-effect dispatch. The
// engine never retries; every operation is written so a caller retry is safe.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"jobcore/internal/common/config"
	"jobcore/internal/common/logger"
	"jobcore/internal/common/metrics"
	"jobcore/internal/common/observability"
	"jobcore/internal/jobstore"
	"jobcore/internal/ledger"
	"jobcore/internal/models"
	"jobcore/internal/translate"
)

var (
	ErrValidation          = errors.New("VALIDATION_ERROR")
	ErrUnauthorized        = errors.New("UNAUTHORIZED")
	ErrInvalidTransition   = errors.New("INVALID_TRANSITION")
	ErrAlreadyArchived     = errors.New("ALREADY_ARCHIVED")
	ErrCrossCountryPosting = errors.New("CROSS_COUNTRY_POSTING")
	ErrFreeTierThrottled   = errors.New("FREE_TIER_THROTTLED")
)

// JobStore is the persistence surface the engine drives.
type JobStore interface {
	Create(ctx context.Context, draft *models.JobDraft, flags jobstore.CreateFlags) (*models.Job, error)
	GetByID(ctx context.Context, jobID string) (*models.Job, error)
	Siblings(ctx context.Context, sourceID string) ([]*models.Job, error)
	Delete(ctx context.Context, jobIDs []string) error
	MaterializeTranslation(ctx context.Context, source *models.Job, lang string, tr translate.Translator) (*models.Job, error)
	Propagate(ctx context.Context, sourceID string, patch *models.JobPatch, tr translate.Translator) (*models.Job, error)
	TransitionFamily(ctx context.Context, sourceID string, archived, closed bool, positions int) error
	HireCandidates(ctx context.Context, jobID string, candidateIDs []string) ([]string, int, error)
	ReleaseQueued(ctx context.Context, employerID string) (string, error)
	IncrementPostCount(ctx context.Context, employerID string) error
}

// EntitlementLedger is the accounting surface.
type EntitlementLedger interface {
	ActiveSubscription(ctx context.Context, employerID string) (*models.Subscription, error)
	CanConsume(ctx context.Context, subscriptionID string, feature models.Feature, units int) (ledger.Decision, error)
	Debit(ctx context.Context, subscriptionID string, feature models.Feature, units int) error
	Credit(ctx context.Context, subscriptionID string, feature models.Feature, units int) error
	DebitComposite(ctx context.Context, subscriptionID string, items []ledger.CostItem) (float64, error)
	Refund(ctx context.Context, subscriptionID string, amount float64, items []ledger.CostItem) error
	FreeTierEligible(ctx context.Context, employerID string, windowDays int) (bool, error)
	FreeDomestic(ctx context.Context, sub *models.Subscription) bool
}

// ConversationCascade fans terminal outcomes out to conversations.
type ConversationCascade interface {
	MarkRejected(ctx context.Context, jobIDs []string, excludeCandidateIDs []string) (int64, error)
	MarkHired(ctx context.Context, jobID, candidateID string) error
	ClearWishlist(ctx context.Context, jobIDs []string) (int64, error)
}

// Notifier is the fire-and-forget side-effect surface.
type Notifier interface {
	NotifyPositionFilled(job *models.Job)
	NotifyHired(job *models.Job, candidateIDs []string)
	SyncCRM(employerID string, activeJobs, totalHires int)
	IndexJob(job *models.Job)
	DeindexFamily(jobIDs []string)
}

// ContentScreener checks free text before publication.
type ContentScreener interface {
	Screen(fields ...string) []string
}

type Engine struct {
	store      JobStore
	ledger     EntitlementLedger
	cascade    ConversationCascade
	dispatch   Notifier
	translator translate.Translator
	screener   ContentScreener
	obs        *observability.Observability
	cfg        config.LifecycleConfig
	logger     logger.Logger
}

func NewEngine(
	store JobStore,
	entitlements EntitlementLedger,
	conversations ConversationCascade,
	dispatcher Notifier,
	translator translate.Translator,
	screener ContentScreener,
	obs *observability.Observability,
	cfg config.LifecycleConfig,
	log logger.Logger,
) *Engine {
	return &Engine{
		store:      store,
		ledger:     entitlements,
		cascade:    conversations,
		dispatch:   dispatcher,
		translator: translator,
		screener:   screener,
		obs:        obs,
		cfg:        cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "lifecycle"}),
	}
}

// observe records metrics for a finished transition.
func (e *Engine) observe(ctx context.Context, transition string, start time.Time, err error) {
	duration := time.Since(start)
	metrics.TransitionDuration.WithLabelValues(transition).Observe(duration.Seconds())
	if e.obs != nil {
		e.obs.RecordTransitionDuration(ctx, transition, duration)
	}

	if err != nil {
		metrics.TransitionsRejected.WithLabelValues(transition, errorLabel(err)).Inc()
		if e.obs != nil {
			e.obs.RecordTransition(ctx, transition, "rejected")
		}
		return
	}
	metrics.TransitionsCompleted.WithLabelValues(transition).Inc()
	if e.obs != nil {
		e.obs.RecordTransition(ctx, transition, "completed")
	}
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrAlreadyArchived):
		return "ALREADY_ARCHIVED"
	case errors.Is(err, ErrCrossCountryPosting):
		return "CROSS_COUNTRY_POSTING"
	case errors.Is(err, ErrFreeTierThrottled):
		return "FREE_TIER_THROTTLED"
	case errors.Is(err, ledger.ErrEntitlementExhausted):
		return "ENTITLEMENT_EXHAUSTED"
	case errors.Is(err, ledger.ErrInsufficientWallet):
		return "INSUFFICIENT_WALLET"
	case errors.Is(err, jobstore.ErrJobNotFound):
		return "JOB_NOT_FOUND"
	case errors.Is(err, jobstore.ErrAllPositionsFilled):
		return "ALL_POSITIONS_FILLED"
	default:
		return "INTERNAL_ERROR"
	}
}

// checkCountry enforces the posting-country rule: an employer posts into its
// own country unless it is a community member from a community-member country.
func (e *Engine) checkCountry(jobCountry, employerCountry string, isCommunityMember bool) error {
	if jobCountry == "" || employerCountry == "" || jobCountry == employerCountry {
		return nil
	}
	if isCommunityMember && e.cfg.IsCommunityMemberCountry(employerCountry) {
		return nil
	}
	return ErrCrossCountryPosting
}

// translationTargets dedupes the requested sibling languages, dropping the
// source language and anything already materialized.
func translationTargets(requested []string, sourceLang string, existing []string) []string {
	have := make(map[string]bool, len(existing)+1)
	have[sourceLang] = true
	for _, lang := range existing {
		have[lang] = true
	}

	var targets []string
	for _, lang := range requested {
		if lang == "" || have[lang] {
			continue
		}
		have[lang] = true
		targets = append(targets, lang)
	}
	return targets
}

func familyIDs(root *models.Job, siblings []*models.Job) []string {
	ids := make([]string, 0, len(siblings)+1)
	ids = append(ids, root.ID)
	for _, s := range siblings {
		ids = append(ids, s.ID)
	}
	return ids
}
