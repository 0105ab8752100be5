package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/annotator-api/internal/events"
)

// Submitter accepts jobs for background execution.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// FactoryEventHandler turns dataset request events into submitted jobs. The
// job takes the ID of the event it was created from.
type FactoryEventHandler struct {
	factory *DatasetJobFactory
	runner  Submitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*FactoryEventHandler)(nil)

// NewFactoryEventHandler creates a handler submitting jobs to runner.
func NewFactoryEventHandler(factory *DatasetJobFactory, runner Submitter, logger *slog.Logger) *FactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "job_factory_event_handler"),
	}
}

// HandleEvent implements events.EventHandler
func (h *FactoryEventHandler) HandleEvent(ctx context.Context, event *events.DatasetRequestEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type)

	if event.Type != TypeDatasetExport && event.Type != TypeDatasetImport {
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	var payload DatasetPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("failed to unmarshal payload", "error", err)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	payload.RequestedBy = event.RequestedBy

	job, err := h.factory.CreateJob(event.ID, event.Type, payload)
	if err != nil {
		log.Error("failed to create job", "error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}

	if err := h.runner.Submit(ctx, job); err != nil {
		log.Error("failed to submit job", "error", err)
		return fmt.Errorf("failed to submit job: %w", err)
	}

	log.Info("job created and submitted",
		"job_id", job.ID(),
		"project_id", payload.ProjectID)
	return nil
}
