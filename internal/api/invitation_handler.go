package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/annotator-api/internal/api/shared"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/service"
)

// InvitationMethods are the methods served on invitation resources.
var InvitationMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// InvitationHandler handles invitation-related HTTP requests.
type InvitationHandler struct {
	invitationService service.InvitationService
	logger            *slog.Logger
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService service.InvitationService, logger *slog.Logger) *InvitationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationHandler{
		invitationService: invitationService,
		logger:            logger.With(slog.String("component", "invitation_handler")),
	}
}

// invitationKey reads the {key} path parameter.
func invitationKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if len(key) != domain.InvitationKeyLength {
		return "", domain.NewValidationError("key", "has invalid format", domain.ErrValidation)
	}
	return key, nil
}

// ListInvitations handles GET /invitations?page=&page_size=.
func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}

	opts, err := parseListOptions(r, true)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.invitationService.ListInvitations(r.Context(), ic, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list invitations")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toPageResponse(page, invitationToResponse))
}

// GetInvitation handles GET /invitations/{key}.
func (h *InvitationHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}
	key, err := invitationKey(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	inv, err := h.invitationService.GetInvitation(r.Context(), ic, key)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get invitation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, invitationToResponse(inv))
}

// CreateInvitation handles POST /invitations. The invitation is created in
// the organization selected by the org query parameter or X-Organization header.
func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}

	var req CreateInvitationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	inv, err := h.invitationService.CreateInvitation(r.Context(), ic, service.CreateInvitationInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create invitation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, invitationToResponse(inv))
}

// AcceptInvitation handles PATCH /invitations/{key} with {"accepted": true}.
func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}
	key, err := invitationKey(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req AcceptInvitationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if !*req.Accepted {
		HandleAPIError(w, r, domain.NewValidationError("accepted", "can only be set to true", domain.ErrValidation), "")
		return
	}

	inv, err := h.invitationService.AcceptInvitation(r.Context(), ic, key)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to accept invitation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, invitationToResponse(inv))
}

// DeleteInvitation handles DELETE /invitations/{key}.
func (h *InvitationHandler) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return
	}
	key, err := invitationKey(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.invitationService.DeleteInvitation(r.Context(), ic, key); err != nil {
		HandleAPIError(w, r, err, "Failed to delete invitation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
