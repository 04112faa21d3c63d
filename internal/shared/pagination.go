package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Slice returns the half-open index range [from, to) for the page.
func (p Pagination) Slice() (int, int) {
	from := (p.Page - 1) * p.PerPage
	if from > p.Total {
		from = p.Total
	}
	to := from + p.PerPage
	if to > p.Total {
		to = p.Total
	}
	return from, to
}
