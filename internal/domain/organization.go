package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// slugPattern matches the slugs accepted for organizations.
var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,16}$`)

// Organization groups users and projects under a shared slug.
type Organization struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Contact     map[string]string `json:"contact"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	CreatedAt   time.Time         `json:"created_date"`
	UpdatedAt   time.Time         `json:"updated_date"`
}

// NewOrganization builds an organization owned by ownerID. When name is empty
// the slug is used as the display name.
func NewOrganization(ownerID uuid.UUID, slug, name, description string, contact map[string]string) (*Organization, error) {
	if name == "" {
		name = slug
	}
	if contact == nil {
		contact = map[string]string{}
	}

	now := time.Now().UTC()
	org := &Organization{
		ID:          uuid.New(),
		Slug:        slug,
		Name:        name,
		Description: description,
		Contact:     contact,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := org.Validate(); err != nil {
		return nil, err
	}
	return org, nil
}

// Validate checks if the Organization has valid data.
func (o *Organization) Validate() error {
	if o.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if !slugPattern.MatchString(o.Slug) {
		return NewValidationError("slug", "must be 1-16 letters, digits, '-' or '_'", ErrInvalidSlug)
	}
	if o.Name == "" {
		return NewValidationError("name", "cannot be empty", nil)
	}
	if len(o.Name) > 64 {
		return NewValidationError("name", "is too long", nil)
	}
	if o.OwnerID == uuid.Nil {
		return NewValidationError("owner", "cannot be empty", ErrInvalidID)
	}
	return nil
}

// OrganizationPatch carries the mutable organization fields of a partial update.
// Nil fields are left untouched.
type OrganizationPatch struct {
	Slug        *string
	Name        *string
	Description *string
	Contact     map[string]string
}

// Apply copies the non-nil fields of p onto o and refreshes UpdatedAt.
func (p OrganizationPatch) Apply(o *Organization) error {
	if p.Slug != nil {
		o.Slug = *p.Slug
	}
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.Contact != nil {
		o.Contact = p.Contact
	}
	o.UpdatedAt = time.Now().UTC()
	return o.Validate()
}
