// Package pagination holds page-window requests and the metadata returned
// alongside windowed results.
package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Window defaults and bounds. MaxLimit is mirrored by the lte rule on
// Request.Limit; MaxPage keeps (page-1)*limit inside an int.
const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	MaxPage          = math.MaxInt / MaxLimit
	DefaultSortOrder = "desc"
)

// Request is a validated page window plus ordering. The upper bound on
// Page is checked by CheckPage.
type Request struct {
	Page      int    `json:"page" validate:"gt=0"`
	Limit     int    `json:"limit" validate:"gt=0,lte=100"`
	SortBy    string `json:"sortBy" validate:"required"`
	SortOrder string `json:"sortOrder" validate:"oneof=asc desc"`
}

// Offset returns the number of rows skipped before the window. It saturates
// at math.MaxInt instead of wrapping.
func (r Request) Offset() int {
	if r.Page < 1 || r.Limit < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Limit {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Limit
}

// CheckPage reports whether Page is small enough for its offset to be
// representable.
func (r Request) CheckPage() error {
	if r.Page > MaxPage {
		return fmt.Errorf("page must not exceed %d", MaxPage)
	}
	return nil
}

// Descending reports whether rows are ordered high to low.
func (r Request) Descending() bool { return r.SortOrder == "desc" }

// FromQuery coerces raw query values into a Request. Absent or non-numeric
// page/limit fall back to defaults; range checks are left to validation.
func FromQuery(values url.Values, defaultSort string) Request {
	req := Request{
		Page:      intOr(values.Get("page"), DefaultPage),
		Limit:     intOr(values.Get("limit"), DefaultLimit),
		SortBy:    strings.TrimSpace(values.Get("sortBy")),
		SortOrder: strings.TrimSpace(values.Get("sortOrder")),
	}
	if req.SortBy == "" {
		req.SortBy = defaultSort
	}
	if req.SortOrder == "" {
		req.SortOrder = DefaultSortOrder
	}
	return req
}

// NormalizeSort checks field against the allowed sort keys.
func NormalizeSort(field string, allowed []string) (string, error) {
	for _, candidate := range allowed {
		if field == candidate {
			return field, nil
		}
	}
	return "", fmt.Errorf("invalid sortBy: %s", field)
}

// Info describes where a window sits in the full result set.
type Info struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewInfo derives page counts from the unwindowed total.
func NewInfo(total int64, page, limit int) Info {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Info{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Result pairs a window of rows with its Info.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Pagination Info `json:"pagination"`
}

// NewResult builds a Result; a nil slice is replaced with an empty one so
// it serializes as [].
func NewResult[T any](data []T, total int64, req Request) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Data: data, Pagination: NewInfo(total, req.Page, req.Limit)}
}

func intOr(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
