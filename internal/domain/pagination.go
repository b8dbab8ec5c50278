package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is an offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// NewPage builds a window from 1-based page and limit query values.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
