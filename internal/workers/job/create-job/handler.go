// internal/workers/job/create-job/handler.go
package createjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "jobcore/internal/common/errors"
	"jobcore/internal/common/logger"
	"jobcore/internal/ledger"
	"jobcore/internal/lifecycle"
	"jobcore/internal/translate"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-job"
)

// LifecycleEngine is the slice of the engine this worker drives.
type LifecycleEngine interface {
	Create(ctx context.Context, req *lifecycle.CreateRequest) (*lifecycle.CreateResult, error)
}

type Handler struct {
	config       *Config
	engine       LifecycleEngine
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, engine LifecycleEngine, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		engine:       engine,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			commonerrors.NewBusinessRuleError("invalid input", fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, h.mapError(err, &input))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	draft := input.Job
	draft.EmployerID = input.EmployerID

	result, err := h.engine.Create(ctx, &lifecycle.CreateRequest{
		Draft:                &draft,
		EmployerCountry:      input.EmployerCountry,
		IsCommunityMember:    input.IsCommunityMember,
		TranslationLanguages: input.TranslationLanguages,
	})
	if err != nil {
		return nil, err
	}

	siblingIDs := make([]string, 0, len(result.Siblings))
	for _, sibling := range result.Siblings {
		siblingIDs = append(siblingIDs, sibling.ID)
	}

	return &Output{
		JobID:         result.Job.ID,
		SiblingJobIDs: siblingIDs,
		Status:        string(result.Job.Status()),
		Queued:        result.Queued,
		UnderReview:   result.UnderReview,
	}, nil
}

func (h *Handler) mapError(err error, input *Input) error {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return commonerrors.NewBusinessRuleError("invalid job draft", err.Error())
	case errors.Is(err, lifecycle.ErrCrossCountryPosting):
		return commonerrors.NewCrossCountryError(input.Job.Country, input.EmployerCountry)
	case errors.Is(err, lifecycle.ErrFreeTierThrottled):
		return &commonerrors.StandardError{
			Code:      commonerrors.ErrCodeFreeTierThrottled,
			Message:   "free tier posting limit reached",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	case errors.Is(err, ledger.ErrInsufficientWallet):
		return &commonerrors.StandardError{
			Code:      commonerrors.ErrCodeInsufficientWallet,
			Message:   "insufficient wallet balance",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	case errors.Is(err, ledger.ErrEntitlementExhausted):
		return commonerrors.NewEntitlementExhaustedError("job posting limit reached", err.Error())
	case errors.Is(err, ledger.ErrPricingLookupFailed), errors.Is(err, ledger.ErrCatalogLookupFailed):
		return commonerrors.NewPricingLookupFailedError(input.Job.Country, "numberOfJobs", err)
	case errors.Is(err, translate.ErrTranslationUnavailable):
		return commonerrors.NewTranslationFailedError("", err)
	default:
		return commonerrors.NewDatabaseWriteFailedError(err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute exposes the core path for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
