package httputil

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ParsePagination parses and validates page/page_size query parameters.
// Returns (page, pageSize, error). Defaults: page=1, pageSize=10.
func ParsePagination(pageStr, pageSizeStr string) (int, int, error) {
	page := 1
	pageSize := defaultPageSize

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid page parameter: must be an integer")
		}
		if p < 1 {
			p = 1
		}
		page = p
	}

	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid page_size parameter: must be an integer")
		}
		if ps < 1 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("page_size must be between 1 and %d", maxPageSize)
		}
		pageSize = ps
	}

	return page, pageSize, nil
}

// TotalPages returns the page count for total items at pageSize per page.
// An empty result set still has one (empty) page.
func TotalPages(total, pageSize int) int {
	if total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// PageURL rebuilds the request URL with the page parameter replaced.
// Returns nil when page is out of [1, totalPages].
func PageURL(r *http.Request, page, totalPages int) *string {
	if page < 1 || page > totalPages {
		return nil
	}
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
