package store

import "github.com/google/uuid"

// DefaultPageSize is used when a paginated list request does not specify a page size.
const DefaultPageSize = 10

// MaxPageSize caps page sizes requested by clients.
const MaxPageSize = 1000

// ListOptions narrows list queries. The zero value lists everything, unpaginated.
type ListOptions struct {
	// OrganizationID restricts results to one organization.
	OrganizationID uuid.NullUUID

	// VisibleTo restricts results to rows the given user may see. It is set by
	// permission filters; Valid=false means no restriction (administrators).
	VisibleTo uuid.NullUUID

	// Page is 1-based. Zero disables pagination.
	Page     int
	PageSize int
}

// Paginated reports whether LIMIT/OFFSET apply.
func (o ListOptions) Paginated() bool {
	return o.Page > 0
}

// Limit returns the effective page size.
func (o ListOptions) Limit() int {
	switch {
	case o.PageSize <= 0:
		return DefaultPageSize
	case o.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return o.PageSize
	}
}

// Offset returns the row offset of the requested page.
func (o ListOptions) Offset() int {
	if o.Page <= 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit()
}

// Page is one page of results plus the total row count.
type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
