package helpers

import (
	"math"
	"net/http"
	"strconv"

	"eventhub/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = math.MaxInt / MaxPageSize
)

// ParsePagination reads page and page_size from the request query string and
// clamps them to valid ranges. It returns nil when neither parameter is present,
// meaning the caller wants the full result set.
// Invalid values fall back to defaults.
func ParsePagination(r *http.Request) *domain.PaginationParams {
	q := r.URL.Query()
	if !q.Has("page") && !q.Has("page_size") {
		return nil
	}
	page := DefaultPage
	if s := q.Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			page = min(v, MaxPage)
		}
	}
	pageSize := DefaultPageSize
	if s := q.Get("page_size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			pageSize = min(v, MaxPageSize)
		}
	}
	return &domain.PaginationParams{Page: page, PageSize: pageSize}
}

// SetTotalCount writes the X-Total-Count header used by list endpoints.
func SetTotalCount(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}
