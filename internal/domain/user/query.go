package user

import (
	"time"

	"github.com/kidpech/users_api/pkg/pagination"
)

// SortableFields lists the public sort keys accepted by list and search.
var SortableFields = []string{"createdAt", "updatedAt", "email", "name"}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"email":     "email",
	"name":      "name",
}

// Filter selects a subset of users. Zero fields match everything. Fetch and
// count must always receive the same Filter.
type Filter struct {
	// Search matches email or name, case-insensitively, as a substring.
	Search       string
	Verified     *bool
	CreatedSince *time.Time
}

// ListQuery is a Filter plus ordering and window.
type ListQuery struct {
	Filter     Filter
	SortColumn string
	Descending bool
	Offset     int
	Limit      int
}

// BuildListQuery translates a validated window and optional search term into
// a store query.
func BuildListQuery(page pagination.Request, search string) ListQuery {
	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = sortColumns[DefaultSortField]
	}
	return ListQuery{
		Filter:     Filter{Search: search},
		SortColumn: column,
		Descending: page.Descending(),
		Offset:     page.Offset(),
		Limit:      page.Limit,
	}
}
