package models

// Pagination defaults and bounds
const (
	DefaultPage       = 1
	DefaultLimit      = 10
	DefaultAdminLimit = 20
	MaxLimit          = 100
)

// IssueQuery is the filter and page of an issue listing. Zero values mean "not set".
type IssueQuery struct {
	Category Category `validate:"omitempty,category" json:"category"`
	Status   Status   `validate:"omitempty,status" json:"status"`
	Priority Priority `validate:"omitempty,priority" json:"priority"`
	Search   string   `validate:"omitempty,max=100" json:"search"`
	Page     int      `validate:"gte=1" json:"page"`
	Limit    int      `validate:"gte=1,lte=100" json:"limit"`
}

// PageQuery is a bare page request
type PageQuery struct {
	Page  int `validate:"gte=1" json:"page"`
	Limit int `validate:"gte=1,lte=100" json:"limit"`
}

// Page is one page of results with the counts a listing reports
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// Pages is ceil(total/limit)
func (p Page[T]) Pages() int {
	return PageCount(p.Total, p.Limit)
}

// PageCount is ceil(total/limit), 0 when limit is not positive
func PageCount(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Skip is the number of documents before page
func Skip(page, limit int) int64 {
	if page < 1 {
		return 0
	}
	return int64(page-1) * int64(limit)
}

// NewListResponse wraps a page in the listing envelope
func NewListResponse[T any](p Page[T]) ListResponse {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse{
		Success: true,
		Count:   len(items),
		Total:   p.Total,
		Page:    p.Page,
		Pages:   p.Pages(),
		Data:    items,
	}
}
