package pagination

// Offset returns the zero-based item offset of a 1-based page.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// Window returns the items of a 1-based page of items.
// Pages past the end yield an empty slice.
func Window[T any](items []T, page, pageSize int) []T {
	start := Offset(page, pageSize)
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// HasMore reports whether a page of a known-size result set is followed by another.
func HasMore(page, pageSize, total int) bool {
	return page*pageSize < total
}

// IsShortPage reports whether a fetched page holds fewer than pageSize items.
// Callers treat a short page as the end of the data.
func IsShortPage(fetched, pageSize int) bool {
	return fetched < pageSize
}
