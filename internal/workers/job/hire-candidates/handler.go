// internal/workers/job/hire-candidates/handler.go
package hirecandidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	commonerrors "jobcore/internal/common/errors"
	"jobcore/internal/common/logger"
	"jobcore/internal/jobstore"
	"jobcore/internal/lifecycle"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "hire-candidates"
)

// LifecycleEngine is the slice of the engine this worker drives.
type LifecycleEngine interface {
	Hire(ctx context.Context, req *lifecycle.HireRequest) (*lifecycle.HireResult, error)
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
	result, err := h.engine.Hire(ctx, &lifecycle.HireRequest{
		JobID:        input.JobID,
		EmployerID:   input.EmployerID,
		CandidateIDs: input.CandidateIDs,
	})
	if err != nil {
		return nil, err
	}

	newlyHired := result.NewlyHired
	if newlyHired == nil {
		newlyHired = []string{}
	}

	return &Output{
		NewlyHired:         newlyHired,
		RemainingPositions: result.RemainingPositions,
		Archived:           result.Archived,
		ReleasedJobID:      result.ReleasedJobID,
	}, nil
}

func (h *Handler) mapError(err error, input *Input) error {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return commonerrors.NewBusinessRuleError("invalid hire request", err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return commonerrors.NewUnauthorizedError(err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return commonerrors.NewInvalidTransitionError("job is not open for hiring", err.Error())
	case errors.Is(err, jobstore.ErrJobNotFound):
		return commonerrors.NewJobNotFoundError(input.JobID)
	case errors.Is(err, jobstore.ErrAllPositionsFilled):
		return commonerrors.NewAllPositionsFilledError(input.JobID, len(input.CandidateIDs), 0)
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
