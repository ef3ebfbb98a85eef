// internal/models/pagination.go
package models

// Pagination is the per-collection paging bookkeeping.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Recompute derives Pages from Total and Limit. Call after either changes.
func (p *Pagination) Recompute() {
	if p.Limit <= 0 {
		p.Pages = 0
		return
	}
	p.Pages = (p.Total + p.Limit - 1) / p.Limit
}
