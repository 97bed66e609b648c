package content

import (
	"context"
	"database/sql"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

func recentCriteria(order string, limit int, extra ...repository.SelectCriteria) []repository.SelectCriteria {
	criteria := append([]repository.SelectCriteria{}, extra...)
	return append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias." + order + " DESC").Limit(limit)
	})
}

func (s *Store) listRecent(ctx context.Context, op string, criteria []repository.SelectCriteria) ([]*Item, error) {
	records, _, err := s.items.List(ctx, criteria...)
	if err != nil && !isRecordNotFound(err) {
		return nil, storeFailure(op, err)
	}
	return records, nil
}

// RecentlyUpdated returns up to limit items, most recently updated first.
func (s *Store) RecentlyUpdated(ctx context.Context, limit int) ([]*Item, error) {
	return s.listRecent(ctx, "recently updated", recentCriteria("updated_at", limit))
}

// RecentlyCreated returns up to limit items, newest first.
func (s *Store) RecentlyCreated(ctx context.Context, limit int) ([]*Item, error) {
	return s.listRecent(ctx, "recently created", recentCriteria("created_at", limit))
}

// ActiveRecentlyUpdated returns up to limit active items, most recently
// updated first.
func (s *Store) ActiveRecentlyUpdated(ctx context.Context, limit int) ([]*Item, error) {
	active := func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.is_active = ?", true)
	}
	return s.listRecent(ctx, "active recently updated", recentCriteria("updated_at", limit, active))
}

// VersionedTitles returns up to limit titles that have more than one version,
// ordered by their latest update.
func (s *Store) VersionedTitles(ctx context.Context, limit int) ([]string, error) {
	var titles []string
	err := s.db.NewSelect().
		Model((*Item)(nil)).
		Column("title").
		Group("title").
		Having("COUNT(*) > 1").
		OrderExpr("MAX(updated_at) DESC").
		Limit(limit).
		Scan(ctx, &titles)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure("versioned titles", err)
	}
	return titles, nil
}
