// internal/lifecycle/terminal.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobcore/internal/jobstore"
	"jobcore/internal/ledger"
	"jobcore/internal/models"
)

type HireRequest struct {
	JobID        string
	EmployerID   string
	CandidateIDs []string
}

type HireResult struct {
	NewlyHired         []string
	RemainingPositions int
	Archived           bool
	ReleasedJobID      string
}

// Hire records hires on a posting. Hiring the last open position closes and
// archives the whole family, returns the posting slot to the subscription,
// releases the employer's oldest queued job, and cascades rejections to
// every other open conversation. Already-hired candidates are skipped, so a
// retried hire converges instead of failing.
func (e *Engine) Hire(ctx context.Context, req *HireRequest) (result *HireResult, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "hire", start, err) }()

	if len(req.CandidateIDs) == 0 {
		err = fmt.Errorf("%w: no candidates given", ErrValidation)
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
	if job.IsArchived || job.IsClosed {
		err = fmt.Errorf("%w: cannot hire on a %s job", ErrInvalidTransition, job.Status())
		return nil, err
	}

	newlyHired, remaining, err := e.store.HireCandidates(ctx, req.JobID, req.CandidateIDs)
	if err != nil {
		return nil, err
	}

	for _, candidateID := range newlyHired {
		if cErr := e.cascade.MarkHired(ctx, req.JobID, candidateID); cErr != nil {
			e.logger.Warn("hired conversation flag failed", map[string]interface{}{
				"jobId":       req.JobID,
				"candidateId": candidateID,
				"error":       cErr.Error(),
			})
		}
	}

	result = &HireResult{NewlyHired: newlyHired, RemainingPositions: remaining}
	if remaining > 0 || len(newlyHired) == 0 {
		e.logger.Info("candidates hired", map[string]interface{}{
			"jobId":     req.JobID,
			"hired":     len(newlyHired),
			"remaining": remaining,
		})
		return result, nil
	}

	// Last position filled: the family goes terminal.
	rootID := job.ID
	if job.IsTranslated && job.SourceJobID != "" {
		rootID = job.SourceJobID
	}
	if err = e.store.TransitionFamily(ctx, rootID, true, true, 0); err != nil {
		return nil, err
	}
	result.Archived = true

	released := e.finishFamily(ctx, rootID, job.EmployerID, newlyHired)
	result.ReleasedJobID = released

	e.dispatch.NotifyPositionFilled(job)
	e.dispatch.NotifyHired(job, newlyHired)
	e.dispatch.SyncCRM(job.EmployerID, -1, len(newlyHired))

	e.logger.Info("job filled and archived", map[string]interface{}{
		"jobId":       req.JobID,
		"hired":       len(newlyHired),
		"releasedJob": released,
	})
	return result, nil
}

type ArchiveOutcome struct {
	JobID string `json:"jobId"`
	Error string `json:"error,omitempty"`
}

// Archive force-closes a posting regardless of open positions. Archiving an
// already archived job is an explicit, non-retryable rejection.
func (e *Engine) Archive(ctx context.Context, jobID, employerID string) (err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "archive", start, err) }()

	job, err := e.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.EmployerID != employerID {
		err = fmt.Errorf("%w: job %s belongs to another employer", ErrUnauthorized, jobID)
		return err
	}
	if job.IsArchived {
		err = fmt.Errorf("%w: job %s", ErrAlreadyArchived, jobID)
		return err
	}

	rootID := job.ID
	if job.IsTranslated && job.SourceJobID != "" {
		rootID = job.SourceJobID
	}
	if err = e.store.TransitionFamily(ctx, rootID, true, true, 0); err != nil {
		return err
	}

	e.finishFamily(ctx, rootID, job.EmployerID, nil)
	e.dispatch.SyncCRM(job.EmployerID, -1, 0)

	e.logger.Info("job archived", map[string]interface{}{"jobId": jobID})
	return nil
}

// ArchiveBulk archives several postings, reporting a per-id outcome instead
// of failing the batch on the first bad id.
func (e *Engine) ArchiveBulk(ctx context.Context, jobIDs []string, employerID string) []ArchiveOutcome {
	outcomes := make([]ArchiveOutcome, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		outcome := ArchiveOutcome{JobID: jobID}
		if err := e.Archive(ctx, jobID, employerID); err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// finishFamily runs the shared post-terminal work: slot credit, queue
// release, conversation cascade, wishlist cleanup, deindex. All of it is
// post-commit; failures are logged, never propagated.
func (e *Engine) finishFamily(ctx context.Context, rootID, employerID string, hiredCandidateIDs []string) (releasedJobID string) {
	e.creditSlot(ctx, employerID)

	released, rErr := e.store.ReleaseQueued(ctx, employerID)
	if rErr != nil {
		e.logger.Warn("queued job release failed", map[string]interface{}{
			"employerId": employerID,
			"error":      rErr.Error(),
		})
	} else if released != "" {
		if releasedJob, gErr := e.store.GetByID(ctx, released); gErr == nil {
			e.dispatch.IndexJob(releasedJob)
		}
	}

	ids := []string{rootID}
	if siblings, sErr := e.store.Siblings(ctx, rootID); sErr == nil {
		for _, s := range siblings {
			ids = append(ids, s.ID)
		}
	}

	if _, cErr := e.cascade.MarkRejected(ctx, ids, hiredCandidateIDs); cErr != nil {
		e.logger.Warn("rejection cascade failed", map[string]interface{}{
			"jobIds": ids,
			"error":  cErr.Error(),
		})
	}
	if _, wErr := e.cascade.ClearWishlist(ctx, ids); wErr != nil {
		e.logger.Warn("wishlist cleanup failed", map[string]interface{}{
			"jobIds": ids,
			"error":  wErr.Error(),
		})
	}

	e.dispatch.DeindexFamily(ids)
	return released
}

// creditSlot returns the posting slot on terminal transitions. The free
// domestic tier is the policy exception: its slot is the rolling window, not
// a counter, so nothing comes back. The plan's package catalog entry decides
// which tier applies.
func (e *Engine) creditSlot(ctx context.Context, employerID string) {
	sub, err := e.ledger.ActiveSubscription(ctx, employerID)
	if err != nil {
		if !errors.Is(err, ledger.ErrSubscriptionNotFound) && !errors.Is(err, ledger.ErrSubscriptionExpired) {
			e.logger.Warn("slot credit lookup failed", map[string]interface{}{
				"employerId": employerID,
				"error":      err.Error(),
			})
		}
		return
	}
	if e.ledger.FreeDomestic(ctx, sub) {
		return
	}
	if err := e.ledger.Credit(ctx, sub.ID, models.FeatureJobs, 1); err != nil {
		e.logger.Error("slot credit failed", map[string]interface{}{
			"subscriptionId": sub.ID,
			"error":          err.Error(),
		})
	}
}

type RepublishRequest struct {
	JobID                string
	EmployerID           string
	EmployerCountry      string
	IsCommunityMember    bool
	NumberOfPositions    int
	TranslationLanguages []string
}

// Republish clones a closed posting into a fresh one, running the complete
// Create entitlement pipeline on the clone. The historical wallet behavior of
// crediting a job unit back right before the re-check double-counts the slot;
// it stays available behind republish_legacy_credit for parity runs only.
func (e *Engine) Republish(ctx context.Context, req *RepublishRequest) (result *CreateResult, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "republish", start, err) }()

	job, err := e.store.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != req.EmployerID {
		err = fmt.Errorf("%w: job %s belongs to another employer", ErrUnauthorized, req.JobID)
		return nil, err
	}
	if !job.IsClosed {
		err = fmt.Errorf("%w: republish is only legal from closed, job is %s", ErrInvalidTransition, job.Status())
		return nil, err
	}

	draft := jobstore.Clone(job)
	if req.NumberOfPositions > 0 {
		draft.NumberOfPositions = req.NumberOfPositions
	}
	if draft.NumberOfPositions <= 0 {
		draft.NumberOfPositions = 1
	}

	if e.cfg.RepublishLegacyCredit {
		if sub, sErr := e.ledger.ActiveSubscription(ctx, req.EmployerID); sErr == nil && sub.IsWallet {
			if cErr := e.ledger.Credit(ctx, sub.ID, models.FeatureJobs, 1); cErr != nil {
				e.logger.Warn("legacy republish credit failed", map[string]interface{}{
					"subscriptionId": sub.ID,
					"error":          cErr.Error(),
				})
			}
		}
	}

	result, err = e.Create(ctx, &CreateRequest{
		Draft:                draft,
		EmployerCountry:      req.EmployerCountry,
		IsCommunityMember:    req.IsCommunityMember,
		TranslationLanguages: req.TranslationLanguages,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("job republished", map[string]interface{}{
		"sourceJobId": req.JobID,
		"newJobId":    result.Job.ID,
	})
	return result, nil
}
