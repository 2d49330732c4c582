package domain

import "math"

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the current page (0-based).
// Formula: (Page - 1) * PageSize, saturating at math.MaxInt.
func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Window returns the [start, end) slice bounds of the current page within total items.
func (p PaginationParams) Window(total int) (start, end int) {
	start = min(p.Offset(), total)
	end = min(start+max(p.PageSize, 0), total)
	return start, end
}
