// Package cli implements annotatorctl, the operator command line for
// dataset exports and imports and database migrations.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/annotator-api/internal/config"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/dataset/formats"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by all commands.
type options struct {
	configFile string
	logLevel   string
}

// NewRootCmd builds the annotatorctl command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "annotatorctl",
		Short: "Operate the annotator API: datasets and database migrations",
		Long: `annotatorctl runs dataset exports and imports directly against the database,
lists the registered dataset formats, and manages schema migrations.

Configuration is read like the server does: config.yaml in the working
directory (or --config) overridden by ANNOTATOR_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newExportCmd(opts),
		newImportCmd(opts),
		newFormatsCmd(),
		newMigrateCmd(opts),
	)
	return root
}

// Execute runs annotatorctl with the process arguments.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}

// env is what commands that touch the database need.
type env struct {
	cfg *config.Config
	log *slog.Logger
	db  *sql.DB
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

// loadEnv loads configuration, sets up logging to stderr and opens the database.
func (o *options) loadEnv(ctx context.Context, stderr io.Writer) (*env, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	levelName := cfg.Server.LogLevel
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	log := logger.New(stderr, level)

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

// datasetService builds the dataset export/import service over the database.
func (e *env) datasetService() *dataset.Service {
	return dataset.NewService(dataset.Deps{
		DB:          e.db,
		Projects:    postgres.NewPostgresProjectStore(e.db, e.log),
		Tasks:       postgres.NewPostgresTaskStore(e.db, e.log),
		Annotations: postgres.NewPostgresAnnotationStore(e.db, e.log),
		Registry:    formats.NewRegistry(int64(e.cfg.Dataset.MaxEntryMB) << 20),
		BatchSize:   e.cfg.Dataset.BulkInsertBatchSize,
	})
}
