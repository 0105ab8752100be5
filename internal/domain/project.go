package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups annotation tasks that share a label set.
type Project struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	OwnerID        uuid.UUID     `json:"owner_id"`
	OrganizationID uuid.NullUUID `json:"organization_id"`
	Labels         []Label       `json:"labels"`
	CreatedAt      time.Time     `json:"created_date"`
	UpdatedAt      time.Time     `json:"updated_date"`
}

// Label is a project-level annotation class.
type Label struct {
	Name       string   `json:"name" yaml:"name"`
	Color      string   `json:"color,omitempty" yaml:"color,omitempty"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// LabelByName returns the project label with the given name.
func (p *Project) LabelByName(name string) (Label, bool) {
	for _, l := range p.Labels {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}
