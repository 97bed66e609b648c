package content

import (
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// DefaultListLimit caps list queries that do not set a limit.
const DefaultListLimit = 100

// Filter narrows ListItems. Zero fields do not filter.
type Filter struct {
	// Title and Content match case-insensitively anywhere in the field.
	Title   string
	Content string

	ItemType      ItemType
	IsActive      *bool
	TagID         *TagID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	Limit  int
	Offset int
}

// Params returns the filter as a flat parameter set. Equal filters always
// produce equal parameter sets, which makes it usable as a cache fingerprint.
func (f Filter) Params() map[string]any {
	params := make(map[string]any)
	if f.Title != "" {
		params["title"] = f.Title
	}
	if f.Content != "" {
		params["content"] = f.Content
	}
	if f.ItemType != "" {
		params["item_type"] = string(f.ItemType)
	}
	if f.IsActive != nil {
		params["is_active"] = *f.IsActive
	}
	if f.TagID != nil {
		params["tag"] = *f.TagID
	}
	if f.CreatedAfter != nil {
		params["created_after"] = f.CreatedAfter.UTC().Format(time.RFC3339Nano)
	}
	if f.CreatedBefore != nil {
		params["created_before"] = f.CreatedBefore.UTC().Format(time.RFC3339Nano)
	}
	params["limit"] = f.limit()
	if f.Offset > 0 {
		params["offset"] = f.Offset
	}
	return params
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) criteria() []repository.SelectCriteria {
	var criteria []repository.SelectCriteria

	if f.Title != "" {
		pattern := "%" + strings.ToLower(f.Title) + "%"
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(?TableAlias.title) LIKE ?", pattern)
		})
	}
	if f.Content != "" {
		pattern := "%" + strings.ToLower(f.Content) + "%"
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(?TableAlias.content) LIKE ?", pattern)
		})
	}
	if f.ItemType != "" {
		itemType := f.ItemType
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.item_type = ?", itemType)
		})
	}
	if f.IsActive != nil {
		active := *f.IsActive
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_active = ?", active)
		})
	}
	if f.TagID != nil {
		tagID := *f.TagID
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.id IN (SELECT item_id FROM script_tags WHERE tag_id = ?)", tagID)
		})
	}
	if f.CreatedAfter != nil {
		after := f.CreatedAfter.UTC()
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.created_at >= ?", after)
		})
	}
	if f.CreatedBefore != nil {
		before := f.CreatedBefore.UTC()
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.created_at <= ?", before)
		})
	}

	limit, offset := f.limit(), f.Offset
	criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.OrderExpr("?TableAlias.sort_order DESC, ?TableAlias.updated_at DESC").Limit(limit)
		if offset > 0 {
			q = q.Offset(offset)
		}
		return q
	})
	return criteria
}
