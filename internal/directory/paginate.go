package directory

// DefaultPageSize matches the members tab.
const DefaultPageSize = 5

// Page is one slice of a filtered list plus the numbers for the pager.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Page        int   `json:"page"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int   `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
	PageNumbers []int `json:"pageNumbers"`
}

// TotalPages is ceil(n/size).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, max(totalPages,1)].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate slices items for the requested page. Every page gets a number
// button; there is no windowing for large lists.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(items), size)
	page = ClampPage(page, total)

	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	numbers := make([]int, total)
	for i := range numbers {
		numbers[i] = i + 1
	}

	return Page[T]{
		Items:       items[start:end],
		Page:        page,
		PageSize:    size,
		TotalItems:  len(items),
		TotalPages:  total,
		HasPrev:     page > 1,
		HasNext:     page < total,
		PageNumbers: numbers,
	}
}
