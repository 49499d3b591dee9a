// internal/dispatch/dispatch.go
// Package dispatch fans side effects out after a transition commits: push and
// email notifications, CRM sync, and search-index updates. Everything here is
// fire-and-forget; a dispatch failure is logged and counted, never surfaced
// back into the lifecycle.
package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"jobcore/internal/common/logger"
	"jobcore/internal/common/metrics"
	"jobcore/internal/common/zoho"
	"jobcore/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const dispatchTimeout = 15 * time.Second

type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type CRMService interface {
	UpsertAccount(ctx context.Context, account *zoho.Account) (string, error)
}

type Dispatcher struct {
	db     *sql.DB
	logger logger.Logger

	ses    SESService
	sns    SNSService
	crm    CRMService
	search SearchIndexer

	fromEmail    string
	topicARN     string
	emailEnabled bool
	pushEnabled  bool

	wg sync.WaitGroup
}

type Options struct {
	SES          SESService
	SNS          SNSService
	CRM          CRMService
	Search       SearchIndexer
	FromEmail    string
	TopicARN     string
	EmailEnabled bool
	PushEnabled  bool
}

func New(db *sql.DB, log logger.Logger, opts Options) *Dispatcher {
	return &Dispatcher{
		db:           db,
		logger:       log.WithFields(map[string]interface{}{"component": "dispatch"}),
		ses:          opts.SES,
		sns:          opts.SNS,
		crm:          opts.CRM,
		search:       opts.Search,
		fromEmail:    opts.FromEmail,
		topicARN:     opts.TopicARN,
		emailEnabled: opts.EmailEnabled,
		pushEnabled:  opts.PushEnabled,
	}
}

// Wait blocks until every in-flight dispatch has finished. Used on shutdown
// and in tests; callers on the hot path never wait.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) async(target string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.DispatchFailures.WithLabelValues(target).Inc()
			d.logger.Error("dispatch failed", map[string]interface{}{
				"target": target,
				"error":  err.Error(),
			})
		}
	}()
}

// NotifyPositionFilled tells the employer that every position on the posting
// has been filled and the job was archived.
func (d *Dispatcher) NotifyPositionFilled(job *models.Job) {
	d.async("notify-position-filled", func(ctx context.Context) error {
		email, name, err := d.employerContact(ctx, job.EmployerID)
		if err != nil {
			return err
		}

		subject := fmt.Sprintf("All positions filled: %s", job.Title)
		body := fmt.Sprintf("Hi %s,\n\nAll positions for your posting %q have been filled. The job has been closed and archived.", name, job.Title)

		if err := d.sendEmail(ctx, email, subject, body); err != nil {
			return err
		}
		return d.publish(ctx, map[string]interface{}{
			"event":      "positionFilled",
			"jobId":      job.ID,
			"employerId": job.EmployerID,
		})
	})
}

// NotifyHired tells each newly hired candidate.
func (d *Dispatcher) NotifyHired(job *models.Job, candidateIDs []string) {
	d.async("notify-hired", func(ctx context.Context) error {
		for _, candidateID := range candidateIDs {
			email, name, err := d.candidateContact(ctx, candidateID)
			if err != nil {
				d.logger.Warn("candidate contact not found", map[string]interface{}{
					"candidateId": candidateID,
				})
				continue
			}

			subject := fmt.Sprintf("You're hired: %s", job.Title)
			body := fmt.Sprintf("Congratulations %s!\n\nYou have been hired for %q.", name, job.Title)
			if err := d.sendEmail(ctx, email, subject, body); err != nil {
				return err
			}
			if err := d.publish(ctx, map[string]interface{}{
				"event":       "candidateHired",
				"jobId":       job.ID,
				"candidateId": candidateID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// SyncCRM pushes the employer's posting activity into the CRM account record.
func (d *Dispatcher) SyncCRM(employerID string, activeJobs, totalHires int) {
	if d.crm == nil {
		return
	}
	d.async("crm-sync", func(ctx context.Context) error {
		_, name, err := d.employerContact(ctx, employerID)
		if err != nil {
			return err
		}
		_, err = d.crm.UpsertAccount(ctx, &zoho.Account{
			AccountName: name,
			EmployerID:  employerID,
			ActiveJobs:  activeJobs,
			TotalHires:  totalHires,
		})
		return err
	})
}

// IndexJob mirrors the posting into the search index.
func (d *Dispatcher) IndexJob(job *models.Job) {
	if d.search == nil {
		return
	}
	d.async("search-index", func(ctx context.Context) error {
		doc, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return d.search.Index(ctx, job.ID, doc)
	})
}

// DeindexFamily drops the source posting and its siblings from the index.
func (d *Dispatcher) DeindexFamily(jobIDs []string) {
	if d.search == nil || len(jobIDs) == 0 {
		return
	}
	d.async("search-deindex", func(ctx context.Context) error {
		for _, id := range jobIDs {
			if err := d.search.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Dispatcher) employerContact(ctx context.Context, employerID string) (email, name string, err error) {
	err = d.db.QueryRowContext(ctx, `SELECT email, name FROM employers WHERE id = $1`, employerID).Scan(&email, &name)
	return email, name, err
}

func (d *Dispatcher) candidateContact(ctx context.Context, candidateID string) (email, name string, err error) {
	err = d.db.QueryRowContext(ctx, `SELECT email, name FROM users WHERE id = $1`, candidateID).Scan(&email, &name)
	return email, name, err
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) error {
	if !d.emailEnabled || d.ses == nil || to == "" {
		return nil
	}
	_, err := d.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.fromEmail),
	})
	return err
}

func (d *Dispatcher) publish(ctx context.Context, payload map[string]interface{}) error {
	if !d.pushEnabled || d.sns == nil {
		return nil
	}
	message, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = d.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(d.topicARN),
		Message:  aws.String(string(message)),
	})
	return err
}
