package paginate

// Page is one slice of a ranked result list
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// Paginate returns the 1-based page of items. Pages past the end are empty
// with HasMore false. The returned slice never aliases items.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return Page[T]{Items: []T{}, Total: total, Page: page, Limit: 0}
	}

	pages := TotalPages(total, pageSize)
	// compare page counts before multiplying so huge pages cannot overflow
	if page > pages {
		return Page[T]{Items: []T{}, Total: total, Page: page, Limit: pageSize}
	}
	start := (page - 1) * pageSize
	end := total
	if total-start > pageSize {
		end = start + pageSize
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return Page[T]{
		Items:   out,
		Total:   total,
		Page:    page,
		Limit:   pageSize,
		HasMore: page < pages,
	}
}

// TotalPages returns the number of pages needed for total items
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}
