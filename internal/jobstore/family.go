// internal/jobstore/family.go
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobcore/internal/models"
	"jobcore/internal/translate"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MaterializeTranslation creates a translated sibling of a source posting.
// Content fields are translated one by one; a field that fails keeps the
// source text. Only a wholesale translation failure aborts the sibling.
// Siblings never nest: the source of a sibling is always the family root.
func (s *Store) MaterializeTranslation(ctx context.Context, source *models.Job, lang string, tr translate.Translator) (*models.Job, error) {
	if source.IsTranslated {
		return nil, fmt.Errorf("%w: job %s is itself a translation", ErrStoreFailed, source.ID)
	}

	now := time.Now()
	sibling := &models.Job{
		ID:                 uuid.New().String(),
		EmployerID:         source.EmployerID,
		Country:            source.Country,
		JobType:            source.JobType,
		Skills:             append([]string(nil), source.Skills...),
		SkillsLower:        append([]string(nil), source.SkillsLower...),
		Address:            source.Address,
		SourceLanguage:     source.SourceLanguage,
		IsVisible:          source.IsVisible,
		InQueue:            source.InQueue,
		IsUnderReview:      source.IsUnderReview,
		ReviewReason:       source.ReviewReason,
		NumberOfPositions:  source.NumberOfPositions,
		IsTranslated:       true,
		TranslatedLanguage: lang,
		SourceJobID:        source.ID,
		IsPremium:          source.IsPremium,
		DisplayLocations:   append([]models.GeoPoint(nil), source.DisplayLocations...),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	attempted, succeeded := 0, 0
	translateField := func(text string) string {
		if text == "" {
			return ""
		}
		attempted++
		out, err := tr.Translate(ctx, text, source.SourceLanguage, lang)
		if err != nil {
			s.logger.Warn("field translation failed, keeping source text", map[string]interface{}{
				"sourceJobId": source.ID,
				"language":    lang,
				"error":       err.Error(),
			})
			return text
		}
		succeeded++
		return out
	}

	sibling.Title = translateField(source.Title)
	sibling.Description = translateField(source.Description)
	sibling.PayRateLabel = translateField(source.PayRateLabel)
	sibling.WalkInAddr = translateField(source.WalkInAddr)

	if attempted > 0 && succeeded == 0 {
		return nil, fmt.Errorf("%w: translation to %s failed for every field", translate.ErrTranslationUnavailable, lang)
	}

	if err := s.insert(ctx, sibling); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET translated_job_ids = array_append(translated_job_ids, $2), updated_at = NOW() WHERE id = $1`,
		source.ID, sibling.ID,
	); err != nil {
		return nil, fmt.Errorf("%w: link sibling: %v", ErrStoreFailed, err)
	}
	source.TranslatedJobIDs = append(source.TranslatedJobIDs, sibling.ID)

	return sibling, nil
}

// Propagate applies a patch to the source posting and mirrors it onto every
// sibling in one transaction. Flags and non-content fields copy verbatim;
// content fields are re-translated per sibling language only when the patch
// actually changed them.
func (s *Store) Propagate(ctx context.Context, sourceID string, patch *models.JobPatch, tr translate.Translator) (*models.Job, error) {
	source, err := s.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.IsTranslated {
		return nil, fmt.Errorf("%w: updates go through the family root, not sibling %s", ErrStoreFailed, sourceID)
	}

	changed := applyPatch(source, patch)
	if len(changed) == 0 && patch.IsEmpty() {
		return source, nil
	}

	siblings, err := s.Siblings(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	defer tx.Rollback()

	if err := updateContent(ctx, tx, source); err != nil {
		return nil, err
	}

	for _, sibling := range siblings {
		applySiblingPatch(sibling, source, patch)

		for field := range changed {
			value := contentField(source, field)
			out, terr := tr.Translate(ctx, value, source.SourceLanguage, sibling.TranslatedLanguage)
			if terr != nil {
				s.logger.Warn("field re-translation failed, keeping source text", map[string]interface{}{
					"siblingId": sibling.ID,
					"field":     field,
					"error":     terr.Error(),
				})
				out = value
			}
			setContentField(sibling, field, out)
		}

		if err := updateContent(ctx, tx, sibling); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return source, nil
}

// content field names tracked for sibling re-translation.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldPayRateLabel = "payRateLabel"
	fieldWalkInAddr   = "walkInAddress"
)

func applyPatch(job *models.Job, patch *models.JobPatch) map[string]bool {
	changed := make(map[string]bool)
	if patch.Title != nil && *patch.Title != job.Title {
		job.Title = *patch.Title
		changed[fieldTitle] = true
	}
	if patch.Description != nil && *patch.Description != job.Description {
		job.Description = *patch.Description
		changed[fieldDescription] = true
	}
	if patch.PayRateLabel != nil && *patch.PayRateLabel != job.PayRateLabel {
		job.PayRateLabel = *patch.PayRateLabel
		changed[fieldPayRateLabel] = true
	}
	if patch.WalkInAddr != nil && *patch.WalkInAddr != job.WalkInAddr {
		job.WalkInAddr = *patch.WalkInAddr
		changed[fieldWalkInAddr] = true
	}
	if patch.JobType != nil {
		job.JobType = *patch.JobType
	}
	if patch.Skills != nil {
		job.Skills = patch.Skills
		job.SkillsLower = models.NormalizeSkills(patch.Skills)
	}
	if patch.Address != nil {
		job.Address = *patch.Address
	}
	if patch.NumberOfPositions != nil {
		job.NumberOfPositions = *patch.NumberOfPositions
	}
	if patch.IsPremium != nil {
		job.IsPremium = *patch.IsPremium
	}
	if patch.DisplayLocations != nil {
		job.DisplayLocations = patch.DisplayLocations
	}
	job.UpdatedAt = time.Now()
	return changed
}

// applySiblingPatch copies everything that is never translated.
func applySiblingPatch(sibling, source *models.Job, patch *models.JobPatch) {
	sibling.JobType = source.JobType
	sibling.Skills = append([]string(nil), source.Skills...)
	sibling.SkillsLower = append([]string(nil), source.SkillsLower...)
	sibling.Address = source.Address
	sibling.NumberOfPositions = source.NumberOfPositions
	sibling.IsPremium = source.IsPremium
	sibling.DisplayLocations = append([]models.GeoPoint(nil), source.DisplayLocations...)
	sibling.UpdatedAt = time.Now()
}

func contentField(job *models.Job, field string) string {
	switch field {
	case fieldTitle:
		return job.Title
	case fieldDescription:
		return job.Description
	case fieldPayRateLabel:
		return job.PayRateLabel
	case fieldWalkInAddr:
		return job.WalkInAddr
	}
	return ""
}

func setContentField(job *models.Job, field, value string) {
	switch field {
	case fieldTitle:
		job.Title = value
	case fieldDescription:
		job.Description = value
	case fieldPayRateLabel:
		job.PayRateLabel = value
	case fieldWalkInAddr:
		job.WalkInAddr = value
	}
}

type execContext interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func updateContent(ctx context.Context, exec execContext, job *models.Job) error {
	locations, err := json.Marshal(job.DisplayLocations)
	if err != nil {
		return fmt.Errorf("%w: marshal display locations: %v", ErrStoreFailed, err)
	}

	query := `UPDATE jobs SET title = $2, description = $3, job_type = $4, skills = $5, skills_lower = $6,
		address = $7, walk_in_address = $8, pay_rate_label = $9, number_of_positions = $10,
		is_premium = $11, display_locations = $12, updated_at = $13
		WHERE id = $1`
	result, err := exec.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, job.JobType,
		pq.Array(job.Skills), pq.Array(job.SkillsLower),
		job.Address, job.WalkInAddr, job.PayRateLabel, job.NumberOfPositions,
		job.IsPremium, locations, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

// TransitionFamily flips the shared lifecycle flags on a source posting and
// every sibling. A single statement keeps the family consistent without
// cross-statement locking.
func (s *Store) TransitionFamily(ctx context.Context, sourceID string, archived, closed bool, positions int) error {
	query := `UPDATE jobs SET
		is_archived = $2,
		is_closed = $3,
		number_of_positions = $4,
		is_visible = CASE WHEN $2 OR $3 THEN false ELSE is_visible END,
		in_queue = CASE WHEN $2 OR $3 THEN false ELSE in_queue END,
		updated_at = NOW()
		WHERE id = $1 OR source_job_id = $1`
	result, err := s.db.ExecContext(ctx, query, sourceID, archived, closed, positions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, sourceID)
	}
	return nil
}

// Clone turns an archived posting back into a draft: content and locality
// survive, identity, hire state, analytics, and review flags do not.
func Clone(job *models.Job) *models.JobDraft {
	return &models.JobDraft{
		EmployerID:        job.EmployerID,
		Country:           job.Country,
		Title:             job.Title,
		Description:       job.Description,
		JobType:           job.JobType,
		Skills:            append([]string(nil), job.Skills...),
		Address:           job.Address,
		WalkInAddr:        job.WalkInAddr,
		PayRateLabel:      job.PayRateLabel,
		NumberOfPositions: job.NumberOfPositions,
		SourceLanguage:    job.SourceLanguage,
		IsPremium:         job.IsPremium,
		DisplayLocations:  append([]models.GeoPoint(nil), job.DisplayLocations...),
	}
}
