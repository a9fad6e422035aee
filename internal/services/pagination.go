package services

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Page is a normalized page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit, substituting fallbackLimit when limit is unset.
func NewPage(page, limit, fallbackLimit int) Page {
	if page < 1 {
		page = defaultPage
	}
	if fallbackLimit < 1 {
		fallbackLimit = defaultLimit
	}
	if limit < 1 {
		limit = fallbackLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the number of pages needed to hold total items.
func (p Page) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
