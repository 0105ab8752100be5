package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	project    string
	format     string
	output     string
	serverURL  string
	saveImages bool
}

func newExportCmd(opts *options) *cobra.Command {
	eo := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project's annotations to a dataset file",
		Long: `Export writes the annotations of a project to a file in the given format.
The file is written under a temporary name and renamed into place.

Examples:
  annotatorctl export --project 3f0c... --format "Native JSON 1.0" --output cats.zip
  annotatorctl export --project 3f0c... --format "Native YAML 1.0" --output cats.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := parseProjectID(eo.project)
			if err != nil {
				return err
			}
			if eo.output == "" {
				return errors.New("--output is required")
			}

			e, err := opts.loadEnv(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			serverURL := eo.serverURL
			if serverURL == "" {
				serverURL = e.cfg.Server.PublicURL
			}

			ctx := logger.WithLogger(cmd.Context(), e.log)
			err = e.datasetService().ExportProject(ctx, projectID, eo.output, eo.format, dataset.ExportOptions{
				ServerURL:  serverURL,
				SaveImages: eo.saveImages,
			})
			if err != nil {
				return err
			}

			abs, _ := filepath.Abs(eo.output)
			e.log.Info("export finished", slog.String("project_id", projectID.String()))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), abs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&eo.project, "project", "p", "", "project ID (required)")
	cmd.Flags().StringVarP(&eo.format, "format", "f", "Native JSON 1.0", "export format name")
	cmd.Flags().StringVarP(&eo.output, "output", "o", "", "destination file (required)")
	cmd.Flags().StringVar(&eo.serverURL, "server-url", "", "server URL recorded in the export (defaults to server.public_url)")
	cmd.Flags().BoolVar(&eo.saveImages, "save-images", false, "include media in the export")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

type importOptions struct {
	project string
	format  string
	file    string
}

func newImportCmd(opts *options) *cobra.Command {
	in := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a dataset file into a project",
		Long: `Import reads a dataset file and appends its tasks and annotations to a
project in one transaction. Labels must already exist in the project.

Example:
  annotatorctl import --project 3f0c... --format "Native JSON 1.0" --file cats.zip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := parseProjectID(in.project)
			if err != nil {
				return err
			}
			if in.file == "" {
				return errors.New("--file is required")
			}

			e, err := opts.loadEnv(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := logger.WithLogger(cmd.Context(), e.log)
			if err := e.datasetService().ImportProject(ctx, projectID, in.file, in.format); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %s into project %s\n", in.file, projectID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.project, "project", "p", "", "project ID (required)")
	cmd.Flags().StringVarP(&in.format, "format", "f", "Native JSON 1.0", "import format name")
	cmd.Flags().StringVar(&in.file, "file", "", "dataset file to import (required)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseProjectID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid project ID %q: %w", raw, err)
	}
	return id, nil
}
