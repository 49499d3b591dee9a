// internal/workers/job/archive-jobs/handler.go
package archivejobs

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
	TaskType = "archive-jobs"
)

// LifecycleEngine is the slice of the engine this worker drives.
type LifecycleEngine interface {
	Archive(ctx context.Context, jobID, employerID string) error
	ArchiveBulk(ctx context.Context, jobIDs []string, employerID string) []lifecycle.ArchiveOutcome
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
	if len(input.JobIDs) == 0 {
		return nil, fmt.Errorf("%w: no job ids given", lifecycle.ErrValidation)
	}

	// A single id keeps strict error semantics; a batch degrades to per-id
	// outcomes so one bad id cannot block the rest.
	if len(input.JobIDs) == 1 {
		jobID := input.JobIDs[0]
		if err := h.engine.Archive(ctx, jobID, input.EmployerID); err != nil {
			return nil, err
		}
		return &Output{
			Outcomes:      []lifecycle.ArchiveOutcome{{JobID: jobID}},
			ArchivedCount: 1,
		}, nil
	}

	outcomes := h.engine.ArchiveBulk(ctx, input.JobIDs, input.EmployerID)
	archived := 0
	for _, outcome := range outcomes {
		if outcome.Error == "" {
			archived++
		}
	}
	return &Output{Outcomes: outcomes, ArchivedCount: archived}, nil
}

func (h *Handler) mapError(err error, input *Input) error {
	jobID := ""
	if len(input.JobIDs) > 0 {
		jobID = input.JobIDs[0]
	}
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return commonerrors.NewBusinessRuleError("invalid archive request", err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return commonerrors.NewUnauthorizedError(err.Error())
	case errors.Is(err, lifecycle.ErrAlreadyArchived):
		return commonerrors.NewAlreadyArchivedError(jobID)
	case errors.Is(err, jobstore.ErrJobNotFound):
		return commonerrors.NewJobNotFoundError(jobID)
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
