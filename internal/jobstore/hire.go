// internal/jobstore/hire.go
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// HireCandidates appends only-new candidates to the hired set and decrements
// the open position count in one conditional UPDATE, then mirrors the new
// count onto the rest of the translated family in the same transaction.
// Re-hiring an already hired candidate is a no-op, so retries are safe. Zero
// rows affected means another hire raced us to the last positions.
func (s *Store) HireCandidates(ctx context.Context, jobID string, candidateIDs []string) (newlyHired []string, remaining int, err error) {
	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == "" || seen[id] || job.IsHired(id) {
			continue
		}
		seen[id] = true
		newlyHired = append(newlyHired, id)
	}
	if len(newlyHired) == 0 {
		return nil, job.NumberOfPositions, nil
	}

	rootID := job.ID
	if job.IsTranslated && job.SourceJobID != "" {
		rootID = job.SourceJobID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	defer tx.Rollback()

	query := `UPDATE jobs SET
		hired_candidate_ids = hired_candidate_ids || $2,
		number_of_positions = number_of_positions - $3,
		updated_at = NOW()
		WHERE id = $1 AND number_of_positions >= $3
		RETURNING number_of_positions`
	err = tx.QueryRowContext(ctx, query, jobID, pq.Array(newlyHired), len(newlyHired)).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: job %s has %d open position(s), cannot hire %d",
				ErrAllPositionsFilled, jobID, job.NumberOfPositions, len(newlyHired))
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	// Open positions stay identical across the family at all times, not
	// just on terminal transitions.
	mirror := `UPDATE jobs SET number_of_positions = $2, updated_at = NOW()
		WHERE (id = $1 OR source_job_id = $1) AND id <> $3`
	if _, err = tx.ExecContext(ctx, mirror, rootID, remaining, jobID); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	return newlyHired, remaining, nil
}

// ReleaseQueued flips the employer's oldest queued posting to visible. Returns
// the released job id, empty when nothing was queued.
func (s *Store) ReleaseQueued(ctx context.Context, employerID string) (string, error) {
	query := `UPDATE jobs SET in_queue = false, is_visible = true, updated_at = NOW()
		WHERE id = (
			SELECT id FROM jobs
			WHERE employer_id = $1 AND in_queue = true AND is_archived = false
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING id`
	var released string
	err := s.db.QueryRowContext(ctx, query, employerID).Scan(&released)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return released, nil
}

// IncrementPostCount bumps the employer's lifetime posting counter.
func (s *Store) IncrementPostCount(ctx context.Context, employerID string) error {
	query := `INSERT INTO employer_stats (employer_id, total_posts, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (employer_id) DO UPDATE SET total_posts = employer_stats.total_posts + 1, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, employerID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}
