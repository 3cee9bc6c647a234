package pagination

const (
	// DefaultPage is used when the caller omits page or sends a non-positive value.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page/limit inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize applies defaults and caps.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit)}
}

// Offset returns (page-1)*limit on the normalized params.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizePage enforces a 1-based page number.
func NormalizePage(page int) int {
	if page <= 0 {
		return DefaultPage
	}
	return page
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page is one slice of a list query plus the total row count across all pages.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

// IsEmpty reports whether the page carries no rows; empty pages are not cached.
func (p Page[T]) IsEmpty() bool {
	return len(p.Data) == 0
}
