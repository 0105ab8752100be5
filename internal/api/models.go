package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/store"
)

// PageResponse is one page of a paginated list.
type PageResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func toPageResponse[E, T any](page store.Page[E], convert func(E) T) PageResponse[T] {
	results := make([]T, 0, len(page.Results))
	for _, e := range page.Results {
		results = append(results, convert(e))
	}
	return PageResponse[T]{Count: page.Count, Results: results}
}

// CreateOrganizationRequest defines the payload for creating an organization.
type CreateOrganizationRequest struct {
	Slug        string            `json:"slug"        validate:"required,max=16"`
	Name        string            `json:"name"        validate:"max=64"`
	Description string            `json:"description"`
	Contact     map[string]string `json:"contact"`
}

// UpdateOrganizationRequest defines the payload of a partial organization update.
type UpdateOrganizationRequest struct {
	Slug        *string           `json:"slug"        validate:"omitempty,max=16"`
	Name        *string           `json:"name"        validate:"omitempty,max=64"`
	Description *string           `json:"description"`
	Contact     map[string]string `json:"contact"`
}

// OrganizationResponse is the read representation of an organization.
type OrganizationResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Contact     map[string]string `json:"contact"`
	OwnerID     uuid.UUID         `json:"owner"`
	CreatedAt   time.Time         `json:"created_date"`
	UpdatedAt   time.Time         `json:"updated_date"`
}

func organizationToResponse(o *domain.Organization) OrganizationResponse {
	contact := o.Contact
	if contact == nil {
		contact = map[string]string{}
	}
	return OrganizationResponse{
		ID:          o.ID,
		Slug:        o.Slug,
		Name:        o.Name,
		Description: o.Description,
		Contact:     contact,
		OwnerID:     o.OwnerID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// UpdateMembershipRequest is the only write accepted on memberships.
type UpdateMembershipRequest struct {
	Role domain.Role `json:"role" validate:"required"`
}

// MembershipResponse is the read representation of a membership.
type MembershipResponse struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user"`
	OrganizationID uuid.UUID   `json:"organization"`
	IsActive       bool        `json:"is_active"`
	JoinedAt       *time.Time  `json:"joined_date"`
	Role           domain.Role `json:"role"`
}

func membershipToResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:             m.ID,
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		IsActive:       m.IsActive,
		JoinedAt:       m.JoinedAt,
		Role:           m.Role,
	}
}

// CreateInvitationRequest defines the payload for inviting a user.
type CreateInvitationRequest struct {
	Email string      `json:"email" validate:"required,email"`
	Role  domain.Role `json:"role"  validate:"required"`
}

// AcceptInvitationRequest is the only write accepted on invitations.
type AcceptInvitationRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// InvitationResponse is the read representation of an invitation.
type InvitationResponse struct {
	Key            string      `json:"key"`
	CreatedAt      time.Time   `json:"created_date"`
	OwnerID        uuid.UUID   `json:"owner"`
	UserID         uuid.UUID   `json:"user,omitempty"`
	OrganizationID uuid.UUID   `json:"organization,omitempty"`
	Role           domain.Role `json:"role,omitempty"`
	Accepted       bool        `json:"accepted"`
}

func invitationToResponse(inv *domain.Invitation) InvitationResponse {
	resp := InvitationResponse{
		Key:       inv.Key,
		CreatedAt: inv.CreatedAt,
		OwnerID:   inv.OwnerID,
		Accepted:  inv.Accepted(),
	}
	if m := inv.Membership; m != nil {
		resp.UserID = m.UserID
		resp.OrganizationID = m.OrganizationID
		resp.Role = m.Role
	}
	return resp
}

// JobResponse is the status of a dataset job. Server-side file paths are
// never exposed; completed exports carry a download URL instead.
type JobResponse struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Status       job.Status `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_date"`
	UpdatedAt    time.Time  `json:"updated_date"`
	FileURL      string     `json:"file_url,omitempty"`
}

func jobToResponse(rec *job.Record) JobResponse {
	resp := JobResponse{
		ID:           rec.ID,
		Type:         rec.Type,
		Status:       rec.Status,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.Type == job.TypeDatasetExport && rec.Status == job.StatusCompleted {
		resp.FileURL = "/api/jobs/" + rec.ID.String() + "/file"
	}
	return resp
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
