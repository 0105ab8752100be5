package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/annotator-api/internal/api/shared"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/service"
)

// OrganizationMethods are the methods served on organization resources.
var OrganizationMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// OrganizationHandler handles organization-related HTTP requests.
type OrganizationHandler struct {
	orgService service.OrganizationService
	logger     *slog.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgService service.OrganizationService, logger *slog.Logger) *OrganizationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizationHandler{
		orgService: orgService,
		logger:     logger.With(slog.String("component", "organization_handler")),
	}
}

// ListOrganizations handles GET /organizations. The list is not paginated.
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}

	orgs, err := h.orgService.ListOrganizations(r.Context(), ic)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list organizations")
		return
	}

	resp := make([]OrganizationResponse, 0, len(orgs))
	for _, o := range orgs {
		resp = append(resp, organizationToResponse(o))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetOrganization handles GET /organizations/{id}.
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(r.Context(), ic, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get organization")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, organizationToResponse(org))
}

// CreateOrganization handles POST /organizations. The caller becomes the
// owner of the new organization.
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}

	var req CreateOrganizationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	org, err := h.orgService.CreateOrganization(r.Context(), ic, service.CreateOrganizationInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Contact:     req.Contact,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create organization")
		return
	}

	log.Info("organization created",
		slog.String("organization_id", org.ID.String()),
		slog.String("slug", org.Slug))
	shared.RespondWithJSON(w, r, http.StatusCreated, organizationToResponse(org))
}

// UpdateOrganization handles PATCH /organizations/{id}.
func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateOrganizationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	org, err := h.orgService.UpdateOrganization(r.Context(), ic, id, domain.OrganizationPatch{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Contact:     req.Contact,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update organization")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, organizationToResponse(org))
}

// DeleteOrganization handles DELETE /organizations/{id}.
func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.orgService.DeleteOrganization(r.Context(), ic, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete organization")
		return
	}

	log.Info("organization deleted", slog.String("organization_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
