package core

// Pagination is the envelope metadata of a paginated list response.
type Pagination struct {
	TotalPage int  `json:"totalPage"`
	Page      int  `json:"page"`
	HasNext   bool `json:"hasNext"`
	HasPrev   bool `json:"hasPrev"`
}

// Page is the normalized form of every list response.
type Page[T any] struct {
	Pagination Pagination `json:"pagination"`
	Values     []T        `json:"values"`
}

// SinglePage wraps a bare array response.
func SinglePage[T any](values []T) Page[T] {
	if values == nil {
		values = []T{}
	}
	return Page[T]{
		Pagination: Pagination{TotalPage: 1, Page: 1},
		Values:     values,
	}
}

// Paginate slices values into the requested page. Page numbers start at 1;
// size <= 0 returns everything as one page.
func Paginate[T any](values []T, page, size int) Page[T] {
	if size <= 0 {
		return SinglePage(values)
	}
	if page < 1 {
		page = 1
	}
	total := (len(values) + size - 1) / size
	if total == 0 {
		total = 1
	}
	start := (page - 1) * size
	end := start + size
	if start > len(values) {
		start = len(values)
	}
	if end > len(values) {
		end = len(values)
	}
	out := make([]T, end-start)
	copy(out, values[start:end])
	return Page[T]{
		Pagination: Pagination{
			TotalPage: total,
			Page:      page,
			HasNext:   page < total,
			HasPrev:   page > 1,
		},
		Values: out,
	}
}
