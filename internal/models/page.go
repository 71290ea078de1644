package models

// Page describes one page of a paginated listing.
type Page struct {
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	Count       int  `json:"count"`
	IsFirst     bool `json:"is_first"`
	IsLast      bool `json:"is_last"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPage builds the envelope for page (1-based) of the given size when
// total records exist and count were returned.
func NewPage(page, size, total, count int) Page {
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return Page{
		Page:        page,
		Size:        size,
		Total:       total,
		TotalPages:  totalPages,
		Count:       count,
		IsFirst:     page == 1,
		IsLast:      page == totalPages || totalPages == 0,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Pagination is a normalized page request.
type Pagination struct {
	Page int
	Size int
}

// Offset returns the number of records to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}

// NormalizePagination clamps page and size to at least 1 and size to max.
func NormalizePagination(page, size, max int) Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if max > 0 && size > max {
		size = max
	}
	return Pagination{Page: page, Size: size}
}
