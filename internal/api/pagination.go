package api

import (
	"net/http"
	"strconv"
)

type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// parsePaginationParams reads ?offset=20&limit=10 style pagination, clamping
// anything out of range.
func parsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func calculatePaginationMeta(limit, offset, total int) paginationMeta {
	return paginationMeta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}
}

// page slices out one page of s. Offsets past the end give an empty page.
func page[T any](s []T, limit, offset int) []T {
	if offset >= len(s) {
		return []T{}
	}
	return s[offset:min(offset+limit, len(s))]
}
