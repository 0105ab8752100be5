package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/api/shared"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/service"
)

// DatasetFileField is the multipart form field carrying an uploaded dataset.
const DatasetFileField = "dataset_file"

// DatasetHandlerConfig configures where uploads go and how large they may be.
type DatasetHandlerConfig struct {
	// ImportDir receives uploaded datasets until their import job consumes them.
	ImportDir string
	// MaxUploadBytes caps the size of an uploaded dataset.
	MaxUploadBytes int64
	// PublicURL is the externally visible server URL passed to exporters.
	// When empty it is derived from the request.
	PublicURL string
}

// DatasetHandler handles dataset export/import requests and job status.
type DatasetHandler struct {
	datasetService service.DatasetService
	config         DatasetHandlerConfig
	logger         *slog.Logger
}

// NewDatasetHandler creates a new DatasetHandler.
func NewDatasetHandler(datasetService service.DatasetService, cfg DatasetHandlerConfig, logger *slog.Logger) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandler{
		datasetService: datasetService,
		config:         cfg,
		logger:         logger.With(slog.String("component", "dataset_handler")),
	}
}

// RequestExport handles POST /projects/{id}/dataset/export?format=&save_images=.
// It responds 202 with the queued job.
func (h *DatasetHandler) RequestExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, projectID, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	format, ok := h.formatParam(w, r)
	if !ok {
		return
	}

	rec, err := h.datasetService.RequestExport(r.Context(), ic, projectID, service.ExportRequest{
		Format:     format,
		ServerURL:  h.serverURL(r),
		SaveImages: parseBoolParam(r.URL.Query().Get("save_images")),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request dataset export")
		return
	}

	log.Info("dataset export requested",
		slog.String("job_id", rec.ID.String()),
		slog.String("project_id", projectID.String()),
		slog.String("format", format))
	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(rec))
}

// RequestImport handles POST /projects/{id}/dataset/import?format=. The
// dataset is either the raw request body or the dataset_file field of a
// multipart form. The upload is written to the import directory and handed
// to the import job, which removes it when done.
func (h *DatasetHandler) RequestImport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, projectID, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	format, ok := h.formatParam(w, r)
	if !ok {
		return
	}

	path, err := h.saveUpload(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Dataset file is too large", err)
			return
		}
		if domain.IsValidationError(err) {
			HandleAPIError(w, r, err, "")
			return
		}
		HandleAPIError(w, r, err, "Failed to store uploaded dataset")
		return
	}

	rec, err := h.datasetService.RequestImport(r.Context(), ic, projectID, service.ImportRequest{
		Format: format,
		File:   path,
	})
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn("failed to remove rejected upload", slog.Any("error", rmErr))
		}
		HandleAPIError(w, r, err, "Failed to request dataset import")
		return
	}

	log.Info("dataset import requested",
		slog.String("job_id", rec.ID.String()),
		slog.String("project_id", projectID.String()),
		slog.String("format", format))
	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(rec))
}

// GetJob handles GET /jobs/{id}.
func (h *DatasetHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, jobID, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	rec, err := h.datasetService.GetJob(r.Context(), ic, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get job")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(rec))
}

// DownloadExport handles GET /jobs/{id}/file and streams the file written by
// a completed export job as an attachment.
func (h *DatasetHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, jobID, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	path, err := h.datasetService.ExportFile(r.Context(), ic, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get export file")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			shared.RespondWithErrorAndLog(w, r, http.StatusGone, "Export file is no longer available", err)
			return
		}
		HandleAPIError(w, r, err, "Failed to open export file")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open export file")
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// ListFormats handles GET /server/annotation/formats.
func (h *DatasetHandler) ListFormats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.datasetService.Formats())
}

func (h *DatasetHandler) formatParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := strings.TrimSpace(r.URL.Query().Get("format"))
	if format == "" {
		HandleAPIError(w, r, domain.NewValidationError("format", "is required", domain.ErrValidation), "")
		return "", false
	}
	return format, true
}

func (h *DatasetHandler) serverURL(r *http.Request) string {
	if h.config.PublicURL != "" {
		return strings.TrimRight(h.config.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

// saveUpload copies the uploaded dataset into the import directory and
// returns its path.
func (h *DatasetHandler) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	if h.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	src, name, err := uploadReader(r)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(h.config.ImportDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create import directory: %w", err)
	}
	dst, err := os.CreateTemp(h.config.ImportDir, uuid.NewString()+"-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	n, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr == nil && n == 0 {
		copyErr = domain.NewValidationError(DatasetFileField, "is empty", domain.ErrValidation)
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst.Name())
		if copyErr != nil {
			return "", copyErr
		}
		return "", fmt.Errorf("failed to write upload file: %w", closeErr)
	}
	return dst.Name(), nil
}

// uploadReader returns the dataset stream of a raw or multipart request and
// the client-side file name when one was given.
func uploadReader(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, "", nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", domain.NewValidationError(DatasetFileField, "has invalid multipart encoding", domain.ErrValidation)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", domain.NewValidationError(DatasetFileField, "is required", domain.ErrValidation)
		}
		if err != nil {
			return nil, "", err
		}
		if part.FormName() == DatasetFileField {
			return part, part.FileName(), nil
		}
		_ = part.Close()
	}
}
