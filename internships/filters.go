package internships

import (
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultPageSize = 10

// Filter narrows an internship listing. Zero values mean "no constraint";
// Search matches title and description case-insensitively.
type Filter struct {
	Search   string
	Location string
	Type     PositionType
	Duration string
	Page     int
	PerPage  int
}

func (f Filter) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

func (f Filter) perPage() int {
	if f.PerPage < 1 {
		return defaultPageSize
	}
	return f.PerPage
}

// criteria translates the filter into select criteria. Ordering is always
// newest first so fresh postings surface on page one.
func (f Filter) criteria() []repository.SelectCriteria {
	out := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_active = TRUE").
				Order("created_at DESC")
		},
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("LOWER(?TableAlias.title) LIKE ?", pattern).
					WhereOr("LOWER(?TableAlias.description) LIKE ?", pattern)
			})
		})
	}

	if location := strings.TrimSpace(f.Location); location != "" {
		pattern := "%" + strings.ToLower(location) + "%"
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(?TableAlias.location) LIKE ?", pattern)
		})
	}

	if f.Type != "" {
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.type = ?", string(f.Type))
		})
	}

	if duration := strings.TrimSpace(f.Duration); duration != "" {
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.duration = ?", duration)
		})
	}

	return out
}

// Page is one page of a filtered listing.
type Page struct {
	Items       []*Internship `json:"items"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	TotalItems  int           `json:"total_items"`
	HasMore     bool          `json:"has_more"`
}

func buildPage(items []*Internship, total, page, perPage int) *Page {
	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}

	return &Page{
		Items:       items,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasMore:     page < totalPages,
	}
}
