// internal/lifecycle/update.go
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"jobcore/internal/ledger"
	"jobcore/internal/models"
)

type UpdateRequest struct {
	JobID             string
	EmployerID        string
	EmployerCountry   string
	IsCommunityMember bool
	Patch             *models.JobPatch
}

type UpdateResult struct {
	Job         *models.Job
	NewSiblings []*models.Job
}

// Update patches a posting and propagates the change across its family. New
// translation languages are charged as a delta against the siblings that
// already exist; content fields re-translate per sibling only when changed.
func (e *Engine) Update(ctx context.Context, req *UpdateRequest) (result *UpdateResult, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "update", start, err) }()

	if req.Patch == nil {
		err = fmt.Errorf("%w: missing patch", ErrValidation)
		return nil, err
	}

	job, err := e.store.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != req.EmployerID {
		err = fmt.Errorf("%w: job %s belongs to another employer", ErrUnauthorized, req.JobID)
		return nil, err
	}
	if job.IsArchived {
		err = fmt.Errorf("%w: cannot update an archived job", ErrInvalidTransition)
		return nil, err
	}
	if err = e.checkCountry(job.Country, req.EmployerCountry, req.IsCommunityMember); err != nil {
		return nil, err
	}

	siblings, err := e.store.Siblings(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	existing := make([]string, 0, len(siblings))
	for _, s := range siblings {
		existing = append(existing, s.TranslatedLanguage)
	}

	// Only languages the family does not already have are charged.
	targets := translationTargets(req.Patch.RequestedLanguages, job.SourceLanguage, existing)

	charged := &debits{}
	var newSiblings []*models.Job
	if len(targets) > 0 {
		sub, subErr := e.ledger.ActiveSubscription(ctx, req.EmployerID)
		if subErr != nil {
			return nil, subErr
		}
		charged.subscriptionID = sub.ID

		if sub.IsWallet {
			items := []ledger.CostItem{{Feature: models.FeatureJobTranslations, Units: len(targets)}}
			total, dErr := e.ledger.DebitComposite(ctx, sub.ID, items)
			if dErr != nil {
				return nil, dErr
			}
			charged.items = items
			charged.walletTotal = total
		} else {
			if err = e.ledger.Debit(ctx, sub.ID, models.FeatureJobTranslations, len(targets)); err != nil {
				return nil, err
			}
			charged.add(models.FeatureJobTranslations, len(targets))
		}

		for _, lang := range targets {
			sibling, sErr := e.store.MaterializeTranslation(ctx, job, lang, e.translator)
			if sErr != nil {
				var created []string
				for _, s := range newSiblings {
					created = append(created, s.ID)
				}
				if dErr := e.store.Delete(ctx, created); dErr != nil {
					e.logger.Error("sibling unwind failed", map[string]interface{}{
						"jobId": job.ID,
						"error": dErr.Error(),
					})
				}
				e.compensate(ctx, charged)
				err = sErr
				return nil, err
			}
			newSiblings = append(newSiblings, sibling)
		}
	}

	updated, err := e.store.Propagate(ctx, job.ID, req.Patch, e.translator)
	if err != nil {
		return nil, err
	}

	if updated.IsVisible {
		e.dispatch.IndexJob(updated)
		refreshed, sErr := e.store.Siblings(ctx, updated.ID)
		if sErr == nil {
			for _, sibling := range refreshed {
				e.dispatch.IndexJob(sibling)
			}
		}
	}

	e.logger.Info("job updated", map[string]interface{}{
		"jobId":       updated.ID,
		"newSiblings": len(newSiblings),
	})

	return &UpdateResult{Job: updated, NewSiblings: newSiblings}, nil
}
