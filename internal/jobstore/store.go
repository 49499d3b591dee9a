// internal/jobstore/store.go
// Package jobstore persists postings and their translated siblings. Family
// writes that must be atomic go through single statements or one transaction;
// nothing here takes cross-family locks.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobcore/internal/common/logger"
	"jobcore/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrJobNotFound        = errors.New("JOB_NOT_FOUND")
	ErrAllPositionsFilled = errors.New("ALL_POSITIONS_FILLED")
	ErrStoreFailed        = errors.New("JOB_STORE_FAILED")
)

const jobColumns = `id, employer_id, country, title, description, job_type, skills, skills_lower,
	address, walk_in_address, pay_rate_label, source_language,
	is_visible, in_queue, is_under_review, review_reason, is_closed, is_archived, is_expired,
	number_of_positions, hired_candidate_ids,
	is_translated, translated_language, source_job_id, translated_job_ids,
	is_premium, display_locations, total_views, unique_viewers, created_at, updated_at`

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "jobstore"}),
	}
}

// CreateFlags sets the initial moderation/queue state of a new posting. The
// engine decides these before the row exists.
type CreateFlags struct {
	UnderReview  bool
	ReviewReason string
	InQueue      bool
}

// Create persists a new source posting from a draft. Analytics start zeroed,
// skills are lowercased alongside the original casing, and visibility follows
// the flags: a queued or under-review job is not visible.
func (s *Store) Create(ctx context.Context, draft *models.JobDraft, flags CreateFlags) (*models.Job, error) {
	now := time.Now()
	job := &models.Job{
		ID:                uuid.New().String(),
		EmployerID:        draft.EmployerID,
		Country:           draft.Country,
		Title:             draft.Title,
		Description:       draft.Description,
		JobType:           draft.JobType,
		Skills:            draft.Skills,
		SkillsLower:       models.NormalizeSkills(draft.Skills),
		Address:           draft.Address,
		WalkInAddr:        draft.WalkInAddr,
		PayRateLabel:      draft.PayRateLabel,
		SourceLanguage:    draft.SourceLanguage,
		NumberOfPositions: draft.NumberOfPositions,
		IsPremium:         draft.IsPremium,
		DisplayLocations:  draft.DisplayLocations,
		IsVisible:         !flags.UnderReview && !flags.InQueue,
		InQueue:           flags.InQueue,
		IsUnderReview:     flags.UnderReview,
		ReviewReason:      flags.ReviewReason,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.insert(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) insert(ctx context.Context, job *models.Job) error {
	locations, err := json.Marshal(job.DisplayLocations)
	if err != nil {
		return fmt.Errorf("%w: marshal display locations: %v", ErrStoreFailed, err)
	}

	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.EmployerID, job.Country, job.Title, job.Description, job.JobType,
		pq.Array(job.Skills), pq.Array(job.SkillsLower),
		job.Address, job.WalkInAddr, job.PayRateLabel, job.SourceLanguage,
		job.IsVisible, job.InQueue, job.IsUnderReview, job.ReviewReason,
		job.IsClosed, job.IsArchived, job.IsExpired,
		job.NumberOfPositions, pq.Array(job.HiredCandidateIDs),
		job.IsTranslated, job.TranslatedLanguage, job.SourceJobID, pq.Array(job.TranslatedJobIDs),
		job.IsPremium, locations, job.TotalViews, pq.Array(job.UniqueViewers),
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}

// GetByID fetches one posting.
func (s *Store) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return job, nil
}

// Siblings returns the translated siblings of a source posting, oldest first.
func (s *Store) Siblings(ctx context.Context, sourceID string) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE source_job_id = $1 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	defer rows.Close()

	var siblings []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		siblings = append(siblings, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return siblings, nil
}

// Delete removes postings by id. Used only to unwind a partially created
// family; archived is the terminal state for everything user-visible.
func (s *Store) Delete(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ANY($1)`, pq.Array(jobIDs)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}

// CountRecentPosts counts non-translated postings by an employer since a
// cutoff, for the free-tier throttle.
func (s *Store) CountRecentPosts(ctx context.Context, employerID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs WHERE employer_id = $1 AND is_translated = false AND created_at > $2`
	if err := s.db.QueryRowContext(ctx, query, employerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var locations []byte
	err := row.Scan(
		&job.ID, &job.EmployerID, &job.Country, &job.Title, &job.Description, &job.JobType,
		pq.Array(&job.Skills), pq.Array(&job.SkillsLower),
		&job.Address, &job.WalkInAddr, &job.PayRateLabel, &job.SourceLanguage,
		&job.IsVisible, &job.InQueue, &job.IsUnderReview, &job.ReviewReason,
		&job.IsClosed, &job.IsArchived, &job.IsExpired,
		&job.NumberOfPositions, pq.Array(&job.HiredCandidateIDs),
		&job.IsTranslated, &job.TranslatedLanguage, &job.SourceJobID, pq.Array(&job.TranslatedJobIDs),
		&job.IsPremium, &locations, &job.TotalViews, pq.Array(&job.UniqueViewers),
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan job: %v", ErrStoreFailed, err)
	}

	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &job.DisplayLocations); err != nil {
			return nil, fmt.Errorf("%w: decode display locations: %v", ErrStoreFailed, err)
		}
	}
	return &job, nil
}
