// Package pagination turns page/size requests into bounded result windows.
package pagination

const (
	DefaultPage = 1
	DefaultSize = 10
	MinSize     = 1
	MaxSize     = 100
)

// Window is the slice of a result set selected for one page.
type Window struct {
	Page   int
	Size   int
	Offset int
	Pages  int
}

// Meta is the pagination metadata returned alongside a page of items.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// Page is a page of items plus its metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"meta"`
}

// ClampSize bounds size to [MinSize, MaxSize].
func ClampSize(size int) int {
	if size < MinSize {
		return MinSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Compute selects the window for page given total matching records.
// page must be positive and size within [MinSize, MaxSize]. A page past
// the last one is clamped to the last page; an empty result has one page.
func Compute(total, page, size int) Window {
	size = ClampSize(size)
	if page < 1 {
		page = DefaultPage
	}

	pages := 1
	if total > 0 {
		pages = (total + size - 1) / size
		page = min(page, pages)
	} else {
		page = 1
	}

	return Window{
		Page:   page,
		Size:   size,
		Offset: (page - 1) * size,
		Pages:  pages,
	}
}

// Meta returns the metadata for the window over total records.
func (w Window) Meta(total int) Meta {
	return Meta{
		Total: total,
		Page:  w.Page,
		Size:  w.Size,
		Pages: w.Pages,
	}
}

// NewPage wraps items in a Page. A nil slice is returned as empty.
func NewPage[T any](items []T, w Window, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: w.Meta(total)}
}
