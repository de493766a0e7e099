// Package pagination holds the zero-based page request bound from query
// strings and the page envelope returned by every listing endpoint.
package pagination

const (
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps Page*Size well inside int range.
	MaxPage = 1_000_000
)

// Query is embedded in listing query payloads.
type Query struct {
	Page int `query:"page" json:"page" validate:"min=0,max=1000000"`
	Size int `query:"size" json:"size" default:"10" validate:"min=1,max=100"`
}

// Normalize clamps out-of-range values for callers that skip the binder.
func (q Query) Normalize() Query {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Size <= 0 {
		q.Size = DefaultSize
	}
	if q.Size > MaxSize {
		q.Size = MaxSize
	}
	return q
}

func (q Query) Limit() int {
	return q.Normalize().Size
}

func (q Query) Offset() int {
	n := q.Normalize()
	return n.Page * n.Size
}

type Page[T any] struct {
	Content       []T  `json:"content"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalElements int  `json:"total_elements"`
	TotalPages    int  `json:"total_pages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// New builds the envelope for one page of a listing with total rows overall.
func New[T any](content []T, q Query, total int) *Page[T] {
	q = q.Normalize()
	if content == nil {
		content = []T{}
	}
	totalPages := (total + q.Size - 1) / q.Size
	return &Page[T]{
		Content:       content,
		Number:        q.Page,
		Size:          q.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         q.Page == 0,
		Last:          q.Page+1 >= totalPages,
	}
}

// Map converts the content of a page, keeping its position.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	content := make([]U, 0, len(p.Content))
	for _, item := range p.Content {
		content = append(content, fn(item))
	}
	return &Page[U]{
		Content:       content,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
	}
}
