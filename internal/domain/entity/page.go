package entity

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageParams selects one page of a collection. Page is 1-based.
type PageParams struct {
	Page int
	Size int
}

// Offset is the number of rows skipped before the page starts. Pages far
// beyond any real collection saturate at math.MaxInt64 instead of wrapping.
func (p PageParams) Offset() int64 {
	if p.Page < 1 || p.Size < 1 {
		return 0
	}
	skipped := int64(p.Page - 1)
	if skipped > math.MaxInt64/int64(p.Size) {
		return math.MaxInt64
	}
	return skipped * int64(p.Size)
}

// Page is a bounded, ordered slice of a larger result set plus the metadata
// needed to walk the whole set. It is never persisted.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Size  int
	Pages int
}

// NewPage computes Pages as ceil(total/size)
func NewPage[T any](items []T, total int64, params PageParams) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if params.Size > 0 {
		pages = int((total + int64(params.Size) - 1) / int64(params.Size))
	}
	return &Page[T]{
		Items: items,
		Total: total,
		Page:  params.Page,
		Size:  params.Size,
		Pages: pages,
	}
}

// MapPage projects every item of p with fn, keeping the metadata.
// The first error from fn aborts the projection.
func MapPage[T, R any](p *Page[T], fn func(T) (R, error)) (*Page[R], error) {
	items := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		r, err := fn(item)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return &Page[R]{
		Items: items,
		Total: p.Total,
		Page:  p.Page,
		Size:  p.Size,
		Pages: p.Pages,
	}, nil
}
