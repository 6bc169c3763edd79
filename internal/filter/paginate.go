package filter

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 10

// PageResult is one zero-based page of a locally paginated collection.
type PageResult[T any] struct {
	Items         []T
	Page          int
	Size          int
	TotalPages    int
	TotalElements int
}

func (p PageResult[T]) First() bool { return p.Page == 0 }

func (p PageResult[T]) Last() bool { return p.TotalPages == 0 || p.Page >= p.TotalPages-1 }

// TotalPages is ceil(total/size), zero for an empty collection.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampPage keeps page within [0, totalPages-1].
func ClampPage(page, totalPages int) int {
	if page < 0 || totalPages == 0 {
		return 0
	}
	if page >= totalPages {
		return totalPages - 1
	}
	return page
}

// Paginate slices items into the requested page. A page beyond the end is
// clamped to the last page so shrinking results never show an empty page.
func Paginate[T any](items []T, page, size int) PageResult[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := TotalPages(total, size)
	page = ClampPage(page, pages)

	start := page * size
	end := start + size
	if end > total {
		end = total
	}

	out := make([]T, 0, end-start)
	if start < end {
		out = append(out, items[start:end]...)
	}

	return PageResult[T]{
		Items:         out,
		Page:          page,
		Size:          size,
		TotalPages:    pages,
		TotalElements: total,
	}
}
