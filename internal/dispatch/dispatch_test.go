// internal/dispatch/dispatch_test.go
package dispatch

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"jobcore/internal/common/logger"
	"jobcore/internal/common/zoho"
	"jobcore/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSES struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, *params.Message.Subject.Data)
	return &ses.SendEmailOutput{}, nil
}

func (f *fakeSES) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

type fakeSNS struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *params.Message)
	return &sns.PublishOutput{}, nil
}

func (f *fakeSNS) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeCRM struct {
	mu       sync.Mutex
	accounts []*zoho.Account
}

func (f *fakeCRM) UpsertAccount(_ context.Context, account *zoho.Account) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, account)
	return "crm-1", nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (f *fakeIndexer) Index(_ context.Context, id string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, id)
	return nil
}

func (f *fakeIndexer) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type testHarness struct {
	dispatcher *Dispatcher
	mock       sqlmock.Sqlmock
	ses        *fakeSES
	sns        *fakeSNS
	crm        *fakeCRM
	indexer    *fakeIndexer
}

func newTestDispatcher(t *testing.T) *testHarness {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &testHarness{
		mock:    mock,
		ses:     &fakeSES{},
		sns:     &fakeSNS{},
		crm:     &fakeCRM{},
		indexer: &fakeIndexer{},
	}
	h.dispatcher = New(db, logger.NewTestLogger(t), Options{
		SES:          h.ses,
		SNS:          h.sns,
		CRM:          h.crm,
		Search:       h.indexer,
		FromEmail:    "jobs@example.com",
		TopicARN:     "arn:aws:sns:ap-south-1:000000000000:lifecycle",
		EmailEnabled: true,
		PushEnabled:  true,
	})
	return h
}

func testJob() *models.Job {
	return &models.Job{
		ID:         "job-1",
		EmployerID: "emp-1",
		Title:      "Delivery Driver",
	}
}

// ==========================
// Notification Tests
// ==========================

func TestNotifyPositionFilled_SendsEmailAndPush(t *testing.T) {
	h := newTestDispatcher(t)

	h.mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, name FROM employers`)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).AddRow("boss@acme.test", "Acme"))

	h.dispatcher.NotifyPositionFilled(testJob())
	h.dispatcher.Wait()

	require.Len(t, h.ses.sent(), 1)
	assert.Contains(t, h.ses.sent()[0], "Delivery Driver")
	require.Len(t, h.sns.published(), 1)
	assert.Contains(t, h.sns.published()[0], "positionFilled")
}

func TestNotifyHired_SkipsUnknownCandidates(t *testing.T) {
	h := newTestDispatcher(t)

	h.mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, name FROM users`)).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).AddRow("one@test", "One"))
	h.mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, name FROM users`)).
		WithArgs("cand-gone").
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}))

	h.dispatcher.NotifyHired(testJob(), []string{"cand-1", "cand-gone"})
	h.dispatcher.Wait()

	assert.Len(t, h.ses.sent(), 1)
	assert.Len(t, h.sns.published(), 1)
}

func TestDispatchFailure_NeverPropagates(t *testing.T) {
	h := newTestDispatcher(t)
	h.ses.err = assert.AnError

	h.mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, name FROM employers`)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).AddRow("boss@acme.test", "Acme"))

	// Must not panic or block; the failure is logged and counted only.
	h.dispatcher.NotifyPositionFilled(testJob())
	h.dispatcher.Wait()

	assert.Empty(t, h.sns.published())
}

// ==========================
// CRM Sync Tests
// ==========================

func TestSyncCRM_UpsertsAccount(t *testing.T) {
	h := newTestDispatcher(t)

	h.mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, name FROM employers`)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).AddRow("boss@acme.test", "Acme"))

	h.dispatcher.SyncCRM("emp-1", 3, 12)
	h.dispatcher.Wait()

	require.Len(t, h.crm.accounts, 1)
	assert.Equal(t, "Acme", h.crm.accounts[0].AccountName)
	assert.Equal(t, 3, h.crm.accounts[0].ActiveJobs)
	assert.Equal(t, 12, h.crm.accounts[0].TotalHires)
}

// ==========================
// Search Index Tests
// ==========================

func TestIndexJob(t *testing.T) {
	h := newTestDispatcher(t)

	h.dispatcher.IndexJob(testJob())
	h.dispatcher.Wait()

	assert.Equal(t, []string{"job-1"}, h.indexer.indexed)
}

func TestDeindexFamily(t *testing.T) {
	h := newTestDispatcher(t)

	h.dispatcher.DeindexFamily([]string{"job-1", "job-1-hi"})
	h.dispatcher.Wait()

	assert.Equal(t, []string{"job-1", "job-1-hi"}, h.indexer.deleted)
}
