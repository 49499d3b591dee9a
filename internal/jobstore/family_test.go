// internal/jobstore/family_test.go
package jobstore

import (
	"context"
	"regexp"
	"testing"

	"jobcore/internal/models"
	"jobcore/internal/translate"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeTranslator prefixes translated text with the target language so tests
// can tell translated fields from copied ones.
type fakeTranslator struct {
	calls    int
	failAll  bool
	failText string
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, targetLang string) (string, error) {
	f.calls++
	if f.failAll || (f.failText != "" && text == f.failText) {
		return "", translate.ErrTranslationUnavailable
	}
	return "[" + targetLang + "] " + text, nil
}

// ==========================
// MaterializeTranslation Tests
// ==========================

func TestMaterializeTranslation_TranslatesContent(t *testing.T) {
	store, mock := newTestStore(t)
	source := activeTestJob("job-1", "emp-1", 3)
	tr := &fakeTranslator{}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO jobs`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`array_append(translated_job_ids, $2)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sibling, err := store.MaterializeTranslation(context.Background(), source, "hi", tr)
	require.NoError(t, err)

	assert.True(t, sibling.IsTranslated)
	assert.Equal(t, "hi", sibling.TranslatedLanguage)
	assert.Equal(t, "job-1", sibling.SourceJobID)
	assert.Equal(t, "[hi] Delivery Driver", sibling.Title)
	assert.Equal(t, "[hi] Deliver packages", sibling.Description)
	assert.Equal(t, source.Address, sibling.Address)
	assert.Equal(t, source.NumberOfPositions, sibling.NumberOfPositions)
	assert.Contains(t, source.TranslatedJobIDs, sibling.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterializeTranslation_FieldFailureKeepsSourceText(t *testing.T) {
	store, mock := newTestStore(t)
	source := activeTestJob("job-1", "emp-1", 3)
	tr := &fakeTranslator{failText: source.Description}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO jobs`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`array_append(translated_job_ids, $2)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sibling, err := store.MaterializeTranslation(context.Background(), source, "hi", tr)
	require.NoError(t, err)

	assert.Equal(t, "[hi] Delivery Driver", sibling.Title)
	assert.Equal(t, source.Description, sibling.Description)
}

func TestMaterializeTranslation_TotalFailureAborts(t *testing.T) {
	store, mock := newTestStore(t)
	source := activeTestJob("job-1", "emp-1", 3)
	tr := &fakeTranslator{failAll: true}

	_, err := store.MaterializeTranslation(context.Background(), source, "hi", tr)
	assert.ErrorIs(t, err, translate.ErrTranslationUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterializeTranslation_SiblingsNeverNest(t *testing.T) {
	store, _ := newTestStore(t)
	sibling := activeTestJob("job-1-hi", "emp-1", 3)
	sibling.IsTranslated = true
	sibling.SourceJobID = "job-1"

	_, err := store.MaterializeTranslation(context.Background(), sibling, "ta", &fakeTranslator{})
	assert.ErrorIs(t, err, ErrStoreFailed)
}

// ==========================
// Propagate Tests
// ==========================

func TestPropagate_RetranslatesOnlyChangedFields(t *testing.T) {
	store, mock := newTestStore(t)

	source := activeTestJob("job-1", "emp-1", 3)
	sibling := activeTestJob("job-1-hi", "emp-1", 3)
	sibling.IsTranslated = true
	sibling.TranslatedLanguage = "hi"
	sibling.SourceJobID = "job-1"
	sibling.Title = "[hi] Delivery Driver"
	sibling.Description = "[hi] Deliver packages"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM jobs WHERE id = $1`)).
		WithArgs("job-1").
		WillReturnRows(testJobRow(source))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE source_job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(testJobRow(sibling))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET title = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET title = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tr := &fakeTranslator{}
	newTitle := "Senior Delivery Driver"
	updated, err := store.Propagate(context.Background(), "job-1", &models.JobPatch{Title: &newTitle}, tr)
	require.NoError(t, err)

	assert.Equal(t, "Senior Delivery Driver", updated.Title)
	// Only the changed title is re-translated; description is untouched.
	assert.Equal(t, 1, tr.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropagate_CopiesPositionsVerbatim(t *testing.T) {
	store, mock := newTestStore(t)

	source := activeTestJob("job-1", "emp-1", 3)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM jobs WHERE id = $1`)).
		WithArgs("job-1").
		WillReturnRows(testJobRow(source))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE source_job_id = $1`)).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(testJobColumns()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET title = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	positions := 5
	updated, err := store.Propagate(context.Background(), "job-1", &models.JobPatch{NumberOfPositions: &positions}, &fakeTranslator{})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.NumberOfPositions)
}

func TestPropagate_RejectsSiblingRoot(t *testing.T) {
	store, mock := newTestStore(t)

	sibling := activeTestJob("job-1-hi", "emp-1", 3)
	sibling.IsTranslated = true
	sibling.SourceJobID = "job-1"
	mock.ExpectQuery(regexp.QuoteMeta(`FROM jobs WHERE id = $1`)).
		WithArgs("job-1-hi").
		WillReturnRows(testJobRow(sibling))

	title := "x"
	_, err := store.Propagate(context.Background(), "job-1-hi", &models.JobPatch{Title: &title}, &fakeTranslator{})
	assert.ErrorIs(t, err, ErrStoreFailed)
}

// ==========================
// TransitionFamily Tests
// ==========================

func TestTransitionFamily_ClosesWholeFamily(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 OR source_job_id = $1`)).
		WithArgs("job-1", true, true, 0).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := store.TransitionFamily(context.Background(), "job-1", true, true, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionFamily_UnknownSource(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 OR source_job_id = $1`)).
		WithArgs("job-missing", true, true, 0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.TransitionFamily(context.Background(), "job-missing", true, true, 0)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

// ==========================
// Clone Tests
// ==========================

func TestClone_StripsIdentityAndHireState(t *testing.T) {
	job := activeTestJob("job-1", "emp-1", 0)
	job.IsArchived = true
	job.IsClosed = true
	job.HiredCandidateIDs = []string{"cand-1", "cand-2"}
	job.TotalViews = 42
	job.UniqueViewers = []string{"viewer-1"}
	job.TranslatedJobIDs = []string{"job-1-hi"}
	job.IsUnderReview = true
	job.ReviewReason = "reported"

	draft := Clone(job)

	assert.Equal(t, job.EmployerID, draft.EmployerID)
	assert.Equal(t, job.Title, draft.Title)
	assert.Equal(t, job.Description, draft.Description)
	assert.Equal(t, job.Address, draft.Address)
	assert.Equal(t, job.SourceLanguage, draft.SourceLanguage)

	// The draft type has no identity, hire state, analytics, or review flags;
	// creating from it yields a fresh posting.
	assert.NotSame(t, &job.Skills, &draft.Skills)
}

func TestClone_NilSlicesStayEmpty(t *testing.T) {
	job := activeTestJob("job-1", "emp-1", 2)
	job.Skills = nil
	job.DisplayLocations = nil

	draft := Clone(job)
	assert.Empty(t, draft.Skills)
	assert.Empty(t, draft.DisplayLocations)
}
