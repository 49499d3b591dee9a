// internal/lifecycle/create.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobcore/internal/jobstore"
	"jobcore/internal/ledger"
	"jobcore/internal/models"
)

// CreateRequest carries a new posting plus the employer context needed for
// the country and membership gates.
type CreateRequest struct {
	Draft                *models.JobDraft
	EmployerCountry      string
	IsCommunityMember    bool
	TranslationLanguages []string
}

// CreateResult reports what was persisted. Queued and UnderReview are
// outcomes, not failures: the posting exists either way.
type CreateResult struct {
	Job         *models.Job
	Siblings    []*models.Job
	Queued      bool
	UnderReview bool
}

// debits records what was charged so a failed create can compensate. Counter
// slots come back via Credit; a wallet charge is refunded in full, because a
// rejected creation must not cost the employer money.
type debits struct {
	subscriptionID string
	items          []ledger.CostItem
	walletTotal    float64
}

func (d *debits) add(feature models.Feature, units int) {
	d.items = append(d.items, ledger.CostItem{Feature: feature, Units: units})
}

func (e *Engine) compensate(ctx context.Context, d *debits) {
	if d.subscriptionID == "" {
		return
	}
	if d.walletTotal > 0 {
		if err := e.ledger.Refund(ctx, d.subscriptionID, d.walletTotal, d.items); err != nil {
			e.logger.Error("compensating refund failed", map[string]interface{}{
				"subscriptionId": d.subscriptionID,
				"amount":         d.walletTotal,
				"error":          err.Error(),
			})
		}
		return
	}
	for _, item := range d.items {
		if err := e.ledger.Credit(ctx, d.subscriptionID, item.Feature, item.Units); err != nil {
			e.logger.Error("compensating credit failed", map[string]interface{}{
				"subscriptionId": d.subscriptionID,
				"feature":        item.Feature,
				"units":          item.Units,
				"error":          err.Error(),
			})
		}
	}
}

// Create runs the full posting pipeline: validation, country gate, content
// screen, entitlement debit, persistence, and sibling materialization. Any
// failure after a debit compensates; any failure after persistence deletes
// the partial family. Side effects dispatch only after everything committed.
func (e *Engine) Create(ctx context.Context, req *CreateRequest) (result *CreateResult, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "create", start, err) }()

	if err = validateDraft(req.Draft); err != nil {
		return nil, err
	}
	if err = e.checkCountry(req.Draft.Country, req.EmployerCountry, req.IsCommunityMember); err != nil {
		return nil, err
	}

	// A profanity hit reviews the posting, it never rejects it.
	matched := e.screener.Screen(req.Draft.Title, req.Draft.Description, strings.Join(req.Draft.Skills, " "))
	underReview := len(matched) > 0
	reviewReason := ""
	if underReview {
		reviewReason = "matched terms: " + strings.Join(matched, ", ")
	}

	languages := translationTargets(req.TranslationLanguages, req.Draft.SourceLanguage, nil)
	multiLocality := len(req.Draft.DisplayLocations) > 1

	charged := &debits{}
	queued := false

	sub, subErr := e.ledger.ActiveSubscription(ctx, req.Draft.EmployerID)
	switch {
	case subErr == nil:
		charged.subscriptionID = sub.ID
		queued, err = e.chargeCreate(ctx, sub, languages, multiLocality, charged)
		if err != nil {
			e.compensate(ctx, charged)
			return nil, err
		}
	case errors.Is(subErr, ledger.ErrSubscriptionNotFound), errors.Is(subErr, ledger.ErrSubscriptionExpired):
		if len(languages) > 0 {
			return nil, fmt.Errorf("%w: translations require a subscription", ledger.ErrEntitlementExhausted)
		}
		if multiLocality {
			return nil, fmt.Errorf("%w: the all-localities add-on requires a subscription", ledger.ErrEntitlementExhausted)
		}
		eligible, gateErr := e.ledger.FreeTierEligible(ctx, req.Draft.EmployerID, e.cfg.FreeTierWindowDays)
		if gateErr != nil {
			return nil, gateErr
		}
		if !eligible {
			return nil, fmt.Errorf("%w: free tier, one job per %d days", ErrFreeTierThrottled, e.cfg.FreeTierWindowDays)
		}
	default:
		return nil, subErr
	}

	job, err := e.store.Create(ctx, req.Draft, jobstore.CreateFlags{
		UnderReview:  underReview,
		ReviewReason: reviewReason,
		InQueue:      queued,
	})
	if err != nil {
		e.compensate(ctx, charged)
		return nil, err
	}

	siblings := make([]*models.Job, 0, len(languages))
	for _, lang := range languages {
		sibling, sErr := e.store.MaterializeTranslation(ctx, job, lang, e.translator)
		if sErr != nil {
			// Unwind the whole family, then the ledger.
			if dErr := e.store.Delete(ctx, familyIDs(job, siblings)); dErr != nil {
				e.logger.Error("saga unwind failed", map[string]interface{}{
					"jobId": job.ID,
					"error": dErr.Error(),
				})
			}
			e.compensate(ctx, charged)
			err = sErr
			return nil, err
		}
		siblings = append(siblings, sibling)
	}

	if statErr := e.store.IncrementPostCount(ctx, job.EmployerID); statErr != nil {
		e.logger.Warn("post counter update failed", map[string]interface{}{
			"employerId": job.EmployerID,
			"error":      statErr.Error(),
		})
	}

	if job.IsVisible {
		e.dispatch.IndexJob(job)
		for _, sibling := range siblings {
			e.dispatch.IndexJob(sibling)
		}
	}
	e.dispatch.SyncCRM(job.EmployerID, 1, 0)

	e.logger.Info("job created", map[string]interface{}{
		"jobId":       job.ID,
		"employerId":  job.EmployerID,
		"queued":      queued,
		"underReview": underReview,
		"siblings":    len(siblings),
	})

	return &CreateResult{
		Job:         job,
		Siblings:    siblings,
		Queued:      queued,
		UnderReview: underReview,
	}, nil
}

// chargeCreate debits the subscription for a new posting. Counter plans pay
// per feature; wallet plans pay one composite debit so the purchase is
// all-or-nothing. A posting shown in more than one locality additionally
// consumes the all-localities add-on. Returns whether the posting should
// queue instead of going live.
func (e *Engine) chargeCreate(ctx context.Context, sub *models.Subscription, languages []string, multiLocality bool, charged *debits) (queued bool, err error) {
	if sub.IsWallet {
		items := []ledger.CostItem{{Feature: models.FeatureJobs, Units: 1}}
		if len(languages) > 0 {
			items = append(items, ledger.CostItem{Feature: models.FeatureJobTranslations, Units: len(languages)})
		}
		if multiLocality {
			items = append(items, ledger.CostItem{Feature: models.FeatureAllLocalities, Units: 1})
		}
		total, err := e.ledger.DebitComposite(ctx, sub.ID, items)
		if err != nil {
			return false, err
		}
		charged.items = append(charged.items, items...)
		charged.walletTotal = total
		return false, nil
	}

	if err := e.ledger.Debit(ctx, sub.ID, models.FeatureJobs, 1); err != nil {
		if errors.Is(err, ledger.ErrEntitlementExhausted) && e.cfg.QueueWhenExhausted {
			queued = true
		} else {
			return false, err
		}
	} else {
		charged.add(models.FeatureJobs, 1)
	}

	if multiLocality {
		if err := e.ledger.Debit(ctx, sub.ID, models.FeatureAllLocalities, 1); err != nil {
			return false, err
		}
		charged.add(models.FeatureAllLocalities, 1)
	}

	if len(languages) > 0 {
		if err := e.ledger.Debit(ctx, sub.ID, models.FeatureJobTranslations, len(languages)); err != nil {
			return false, err
		}
		charged.add(models.FeatureJobTranslations, len(languages))
	}

	return queued, nil
}

func validateDraft(draft *models.JobDraft) error {
	if draft == nil {
		return fmt.Errorf("%w: missing draft", ErrValidation)
	}
	if draft.EmployerID == "" {
		return fmt.Errorf("%w: employerId is required", ErrValidation)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if draft.Country == "" {
		return fmt.Errorf("%w: country is required", ErrValidation)
	}
	if draft.NumberOfPositions <= 0 {
		draft.NumberOfPositions = 1
	}
	return nil
}
