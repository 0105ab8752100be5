package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/annotator-api/internal/api/shared"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/service"
)

// MembershipMethods are the methods served on membership resources.
// Memberships are created through organizations and invitations only.
var MembershipMethods = []string{
	http.MethodGet, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// MembershipHandler handles membership-related HTTP requests.
type MembershipHandler struct {
	membershipService service.MembershipService
	logger            *slog.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membershipService service.MembershipService, logger *slog.Logger) *MembershipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MembershipHandler{
		membershipService: membershipService,
		logger:            logger.With(slog.String("component", "membership_handler")),
	}
}

// ListMemberships handles GET /memberships?page=&page_size=.
func (h *MembershipHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.membershipService.ListMemberships(r.Context(), ic, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list memberships")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toPageResponse(page, membershipToResponse))
}

// GetMembership handles GET /memberships/{id}.
func (h *MembershipHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	m, err := h.membershipService.GetMembership(r.Context(), ic, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get membership")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, membershipToResponse(m))
}

// UpdateMembership handles PATCH /memberships/{id}. Only the role may change;
// any other field in the body is rejected.
func (h *MembershipHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateMembershipRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	m, err := h.membershipService.UpdateMembershipRole(r.Context(), ic, id, req.Role)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update membership")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, membershipToResponse(m))
}

// DeleteMembership handles DELETE /memberships/{id}.
func (h *MembershipHandler) DeleteMembership(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ic, id, ok := handleIAMAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.membershipService.DeleteMembership(r.Context(), ic, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete membership")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
