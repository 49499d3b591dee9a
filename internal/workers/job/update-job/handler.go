// internal/workers/job/update-job/handler.go
package updatejob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "jobcore/internal/common/errors"
	"jobcore/internal/common/logger"
	"jobcore/internal/jobstore"
	"jobcore/internal/ledger"
	"jobcore/internal/lifecycle"
	"jobcore/internal/translate"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-job"
)

// LifecycleEngine is the slice of the engine this worker drives.
type LifecycleEngine interface {
	Update(ctx context.Context, req *lifecycle.UpdateRequest) (*lifecycle.UpdateResult, error)
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
	patch := input.Patch
	result, err := h.engine.Update(ctx, &lifecycle.UpdateRequest{
		JobID:             input.JobID,
		EmployerID:        input.EmployerID,
		EmployerCountry:   input.EmployerCountry,
		IsCommunityMember: input.IsCommunityMember,
		Patch:             &patch,
	})
	if err != nil {
		return nil, err
	}

	siblingIDs := make([]string, 0, len(result.NewSiblings))
	for _, sibling := range result.NewSiblings {
		siblingIDs = append(siblingIDs, sibling.ID)
	}

	return &Output{
		JobID:            result.Job.ID,
		NewSiblingJobIDs: siblingIDs,
		Status:           string(result.Job.Status()),
	}, nil
}

func (h *Handler) mapError(err error, input *Input) error {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return commonerrors.NewBusinessRuleError("invalid job patch", err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return commonerrors.NewUnauthorizedError(err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return commonerrors.NewInvalidTransitionError("job cannot be updated", err.Error())
	case errors.Is(err, lifecycle.ErrCrossCountryPosting):
		return commonerrors.NewCrossCountryError("", input.EmployerCountry)
	case errors.Is(err, jobstore.ErrJobNotFound):
		return commonerrors.NewJobNotFoundError(input.JobID)
	case errors.Is(err, ledger.ErrSubscriptionNotFound):
		return commonerrors.NewSubscriptionNotFoundError(input.EmployerID)
	case errors.Is(err, ledger.ErrSubscriptionExpired):
		return commonerrors.NewSubscriptionExpiredError(err.Error())
	case errors.Is(err, ledger.ErrEntitlementExhausted):
		return commonerrors.NewEntitlementExhaustedError("job translation limit reached", err.Error())
	case errors.Is(err, ledger.ErrInsufficientWallet):
		return commonerrors.NewInsufficientWalletError(0, 0)
	case errors.Is(err, ledger.ErrPricingLookupFailed), errors.Is(err, ledger.ErrCatalogLookupFailed):
		return commonerrors.NewPricingLookupFailedError(input.EmployerCountry, "numberOfJobTranslations", err)
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
