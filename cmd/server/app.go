package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/annotator-api/internal/config"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/dataset/formats"
	"github.com/phrazzld/annotator-api/internal/events"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/platform/postgres"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/phrazzld/annotator-api/internal/service"
	"github.com/phrazzld/annotator-api/internal/service/auth"
	"github.com/phrazzld/annotator-api/internal/store"
)

// application holds the shared dependencies of the server so they can be
// wired once and cleaned up together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore       store.UserStore
	orgStore        store.OrganizationStore
	membershipStore store.MembershipStore
	invitationStore store.InvitationStore
	projectStore    store.ProjectStore
	jobStore        job.Store

	jwtService        auth.JWTService
	resolver          *iam.Resolver
	orgService        service.OrganizationService
	membershipService service.MembershipService
	invitationService service.InvitationService
	datasetService    service.DatasetService

	eventEmitter *events.InMemoryEventEmitter
	jobRunner    *job.Runner
}

// newApplication wires stores, services and the job pipeline. The job runner
// is created but not started; Run starts it.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.orgStore = postgres.NewPostgresOrganizationStore(db, logger)
	app.membershipStore = postgres.NewPostgresMembershipStore(db, logger)
	app.invitationStore = postgres.NewPostgresInvitationStore(db, logger)
	app.projectStore = postgres.NewPostgresProjectStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)

	app.resolver = iam.NewResolver(app.userStore, app.orgStore, app.membershipStore)
	policy := iam.NewPolicy(app.membershipStore)

	registry := formats.NewRegistry(int64(cfg.Dataset.MaxEntryMB) << 20)
	processor := dataset.NewService(dataset.Deps{
		DB:          db,
		Projects:    app.projectStore,
		Tasks:       postgres.NewPostgresTaskStore(db, logger),
		Annotations: postgres.NewPostgresAnnotationStore(db, logger),
		Registry:    registry,
		BatchSize:   cfg.Dataset.BulkInsertBatchSize,
	})

	factory := job.NewDatasetJobFactory(processor, registry, cfg.Dataset.ExportDir, logger)
	app.jobRunner = job.NewRunner(app.jobStore, factory, job.RunnerConfig{
		QueueSize:   cfg.Job.QueueSize,
		WorkerCount: cfg.Job.WorkerCount,
		StuckJobAge: time.Duration(cfg.Job.StuckJobAgeMinutes) * time.Minute,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(job.NewFactoryEventHandler(factory, app.jobRunner, logger))

	app.orgService, err = service.NewOrganizationService(db, app.orgStore, app.membershipStore, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization service: %w", err)
	}
	app.membershipService, err = service.NewMembershipService(app.membershipStore, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership service: %w", err)
	}
	app.invitationService, err = service.NewInvitationService(
		db, app.userStore, app.membershipStore, app.invitationStore, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation service: %w", err)
	}
	app.datasetService, err = service.NewDatasetService(
		app.projectStore, app.jobStore, registry, app.eventEmitter, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset service: %w", err)
	}

	logger.Info("application initialized",
		"exporters", len(registry.Formats().Exporters),
		"importers", len(registry.Formats().Importers))
	return app, nil
}

// cleanup stops the job runner and closes the database.
func (app *application) cleanup() {
	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", redact.Error(err))
		}
	}
}
