package user

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kidpech/users_api/pkg/pagination"
	"github.com/kidpech/users_api/pkg/validation"
)

// DefaultSortField orders listings newest first when sortBy is absent.
const DefaultSortField = "createdAt"

var validate = validation.New()

// SearchRequest is a normalized search term.
type SearchRequest struct {
	Q string `json:"q" validate:"notblank,max=100"`
}

// UpdateUserRequest is a partial profile update. Absent fields stay nil.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,min=3,max=255,email"`
}

// IDParam is the :id path parameter.
type IDParam struct {
	ID string `json:"id" validate:"notblank"`
}

var (
	paginationMessages = validation.Messages{
		"page.gt":         "Page must be greater than 0",
		"limit.gt":        "Limit must be between 1 and 100",
		"limit.lte":       "Limit must be between 1 and 100",
		"sortOrder.oneof": "Sort order must be either asc or desc",
	}
	searchMessages = validation.Messages{
		"q.notblank": "Search query must not be empty",
		"q.max":      "Search query must not exceed 100 characters",
	}
	updateMessages = validation.Messages{
		"name.min":  "Name must be at least 2 characters",
		"name.max":  "Name must not exceed 100 characters",
		"email.min": "Email must be at least 3 characters",
		"email.max": "Email must not exceed 255 characters",
	}
	emailMessages = validation.Messages{
		"email.required": "Email is required",
		"email.min":      "Email must be at least 3 characters",
		"email.max":      "Email must not exceed 255 characters",
	}
	passwordMessages = validation.Messages{
		"password.required": "Password is required",
		"password.min":      "Password must be at least 8 characters",
		"password.max":      "Password must not exceed 128 characters",
	}
	idMessages = validation.Messages{
		"id.notblank": "ID is required",
	}
)

// ParsePagination coerces and validates page, limit, sortBy and sortOrder.
func ParsePagination(values url.Values) (pagination.Request, validation.Violations) {
	req := pagination.FromQuery(values, DefaultSortField)
	violations := validate.Struct(req, paginationMessages)
	if err := req.CheckPage(); err != nil {
		violations.Add("page", "lte", fmt.Sprintf("Page must not exceed %d", pagination.MaxPage))
	}
	if _, err := pagination.NormalizeSort(req.SortBy, SortableFields); err != nil {
		violations.Add("sortBy", "oneof", "Sort field must be one of: "+strings.Join(SortableFields, ", "))
	}
	return req, violations
}

// ParseSearch validates the search term together with the pagination window.
func ParseSearch(values url.Values) (SearchRequest, pagination.Request, validation.Violations) {
	var violations validation.Violations
	search := SearchRequest{Q: strings.TrimSpace(values.Get("q"))}
	if !values.Has("q") {
		violations.Add("q", "required", "Search query is required")
	} else {
		violations.Merge(validate.Struct(search, searchMessages))
	}
	page, pageViolations := ParsePagination(values)
	violations.Merge(pageViolations)
	return search, page, violations
}

// ParseUpdate trims and lower-cases the supplied fields, then validates
// each one that is present.
func ParseUpdate(req UpdateUserRequest) (UpdateUserRequest, validation.Violations) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	return req, validate.Struct(req, updateMessages)
}

// ParseIDParam validates the :id path parameter.
func ParseIDParam(raw string) (IDParam, validation.Violations) {
	param := IDParam{ID: strings.TrimSpace(raw)}
	return param, validate.Struct(param, idMessages)
}

// ValidateEmail normalizes and checks a required email address.
func ValidateEmail(raw string) (string, validation.Violations) {
	email := normalizeEmail(raw)
	return email, validate.Var("email", email, "required,min=3,max=255,email", emailMessages)
}

// ValidatePassword checks length bounds and character classes.
func ValidatePassword(raw string) validation.Violations {
	return validate.Var("password", raw, "required,min=8,max=128,password", passwordMessages)
}

// ValidateName trims and checks an optional display name.
func ValidateName(raw string) (string, validation.Violations) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", nil
	}
	return name, validate.Var("name", name, "min=2,max=100", updateMessages)
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
