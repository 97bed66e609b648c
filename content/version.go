package content

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-script-cache/logging"
)

// CreateNewVersion appends the next version of the parent's title. The new
// item copies the parent's content fields and tag relations; the parent row
// is left untouched.
//
// The title's rows are locked before the next number is computed, so
// concurrent callers on one title are serialized and receive distinct,
// increasing versions.
func (s *Store) CreateNewVersion(ctx context.Context, parentID ItemID, actor Actor) (*Item, error) {
	var created *Item
	var copied int

	err := s.writeTx(ctx, "create new version", func(ctx context.Context, tx bun.Tx) error {
		parent, err := getItemTx(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if err := s.lockTitle(ctx, tx, parent.Title); err != nil {
			return err
		}
		current, err := maxVersion(ctx, tx, parent.Title)
		if err != nil {
			return err
		}

		now := s.timestamp()
		next := parent.nextVersion(current+1, actor, now)
		if _, err := tx.NewInsert().Model(next).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return &lostRaceError{err: err}
			}
			return err
		}

		n, err := copyRelations(ctx, tx, parent.ID, next.ID, next.CreatedBy, now)
		if err != nil {
			return err
		}
		created, copied = next, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("script version created", logging.Fields{
		"parent_id": parentID.String(),
		"id":        created.ID.String(),
		"title":     created.Title,
		"version":   created.Version,
		"tags":      copied,
	})
	return created, nil
}

// copyRelations clones the tag relations of from onto to in one insert.
func copyRelations(ctx context.Context, tx bun.Tx, from, to ItemID, actor Actor, now time.Time) (int, error) {
	var tagIDs []TagID
	err := tx.NewSelect().
		Model((*ItemTag)(nil)).
		Column("tag_id").
		Where("item_id = ?", from).
		OrderExpr("tag_id ASC").
		Scan(ctx, &tagIDs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if len(tagIDs) == 0 {
		return 0, nil
	}

	rows := make([]ItemTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, ItemTag{
			ItemID:    to,
			TagID:     tagID,
			CreatedBy: actor,
			UpdatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return 0, err
	}
	return len(rows), nil
}
