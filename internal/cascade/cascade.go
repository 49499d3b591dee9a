// internal/cascade/cascade.go
// Package cascade fans lifecycle outcomes out to conversation and wishlist
// records. The engine calls it after a transition commits; a cascade failure
// is logged and never unwinds the transition.
package cascade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobcore/internal/common/logger"

	"github.com/lib/pq"
)

var ErrCascadeFailed = errors.New("CONVERSATION_CASCADE_FAILED")

type Cascade struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Cascade {
	return &Cascade{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "cascade"}),
	}
}

// MarkRejected rejects every open conversation on the given jobs except those
// belonging to the just-hired candidates. Returns the number of conversations
// touched.
func (c *Cascade) MarkRejected(ctx context.Context, jobIDs []string, excludeCandidateIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}

	query := `UPDATE conversations SET is_rejected = true, updated_at = NOW()
		WHERE job_id = ANY($1)
		  AND is_hired = false AND is_rejected = false
		  AND NOT (candidate_id = ANY($2))`
	result, err := c.db.ExecContext(ctx, query, pq.Array(jobIDs), pq.Array(excludeCandidateIDs))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCascadeFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCascadeFailed, err)
	}

	c.logger.Info("conversations rejected", map[string]interface{}{
		"jobIds":   jobIDs,
		"affected": affected,
	})
	return affected, nil
}

// MarkHired flags the candidate's conversation on the job as hired.
func (c *Cascade) MarkHired(ctx context.Context, jobID, candidateID string) error {
	query := `UPDATE conversations SET is_hired = true, is_rejected = false, updated_at = NOW()
		WHERE job_id = $1 AND candidate_id = $2`
	if _, err := c.db.ExecContext(ctx, query, jobID, candidateID); err != nil {
		return fmt.Errorf("%w: %v", ErrCascadeFailed, err)
	}
	return nil
}

// ClearWishlist removes the given jobs from every candidate wishlist.
func (c *Cascade) ClearWishlist(ctx context.Context, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}

	result, err := c.db.ExecContext(ctx, `DELETE FROM wishlist_entries WHERE job_id = ANY($1)`, pq.Array(jobIDs))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCascadeFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCascadeFailed, err)
	}
	return affected, nil
}
