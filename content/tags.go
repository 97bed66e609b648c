package content

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-script-cache/logging"
)

// tagDirectory answers tag activity from the tags table.
type tagDirectory struct {
	db bun.IDB
}

func (d tagDirectory) IsTagActive(ctx context.Context, id TagID) (bool, error) {
	tag := new(Tag)
	err := d.db.NewSelect().Model(tag).Column("id", "is_active").Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, tagNotFound(id)
	}
	if err != nil {
		return false, err
	}
	return tag.IsActive, nil
}

// Validate checks that the tag has a name.
func (t *Tag) Validate() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, TitleMaxLength).Error("name must be at most 100 characters"),
		),
	)
	if err == nil {
		return nil
	}
	return fromValidation(err)
}

// CreateTag inserts an active tag.
func (s *Store) CreateTag(ctx context.Context, name string) (*Tag, error) {
	now := s.timestamp()
	tag := &Tag{
		Name:      strings.TrimSpace(name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.db.NewInsert().Model(tag).Exec(ctx); err != nil {
		return nil, storeFailure("create tag", err)
	}
	return tag, nil
}

// SetTagActive flips the active flag of a tag. Existing relations are kept.
func (s *Store) SetTagActive(ctx context.Context, id TagID, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*Tag)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", s.timestamp()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return storeFailure("set tag active", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tagNotFound(id)
	}
	return nil
}

// AttachTag relates an active tag to an item. Inactive tags are rejected
// with a validation error and an existing pair with a conflict.
func (s *Store) AttachTag(ctx context.Context, itemID ItemID, tagID TagID, actor Actor) (*ItemTag, error) {
	active, err := s.tags.IsTagActive(ctx, tagID)
	if err != nil {
		return nil, storeFailure("lookup tag", err)
	}
	if !active {
		return nil, tagInactive(tagID)
	}

	now := s.timestamp()
	rel := &ItemTag{
		ItemID:    itemID,
		TagID:     tagID,
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.writeTx(ctx, "attach tag", func(ctx context.Context, tx bun.Tx) error {
		if _, err := getItemTx(ctx, tx, itemID); err != nil {
			return err
		}
		exists, err := tx.NewSelect().
			Model((*ItemTag)(nil)).
			Where("item_id = ?", itemID).
			Where("tag_id = ?", tagID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return relationExists(itemID, tagID)
		}
		if _, err := tx.NewInsert().Model(rel).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return relationExists(itemID, tagID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("tag attached", logging.Fields{"item_id": itemID.String(), "tag_id": tagID})
	return rel, nil
}

// DetachTag removes the relation between an item and a tag. A pair that is
// not related is a TAG_RELATION_NOT_FOUND error.
func (s *Store) DetachTag(ctx context.Context, itemID ItemID, tagID TagID) error {
	res, err := s.db.NewDelete().
		Model((*ItemTag)(nil)).
		Where("item_id = ?", itemID).
		Where("tag_id = ?", tagID).
		Exec(ctx)
	if err != nil {
		return storeFailure("detach tag", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return relationNotFound(itemID, tagID)
	}
	return nil
}

// ItemTagIDs returns the ids of the tags related to an item, ascending.
func (s *Store) ItemTagIDs(ctx context.Context, itemID ItemID) ([]TagID, error) {
	var ids []TagID
	err := s.db.NewSelect().
		Model((*ItemTag)(nil)).
		Column("tag_id").
		Where("item_id = ?", itemID).
		OrderExpr("tag_id ASC").
		Scan(ctx, &ids)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure("item tags", err)
	}
	return ids, nil
}

// ItemTagRelations returns the relation rows of an item, ordered by tag id.
func (s *Store) ItemTagRelations(ctx context.Context, itemID ItemID) ([]ItemTag, error) {
	var rels []ItemTag
	err := s.db.NewSelect().
		Model(&rels).
		Where("?TableAlias.item_id = ?", itemID).
		OrderExpr("?TableAlias.tag_id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure("item tag relations", err)
	}
	return rels, nil
}
