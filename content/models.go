package content

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ItemID identifies a script. It is assigned by the store and never changes.
type ItemID = uuid.UUID

// TagID identifies a tag.
type TagID = int64

// Actor is an opaque reference to whoever performs a write.
type Actor string

// ItemType is the fixed set of script kinds.
type ItemType string

const (
	ItemTypeOpening ItemType = "opening"
	ItemTypeClosing ItemType = "closing"
	ItemTypeQA      ItemType = "qa"
	ItemTypeCustom  ItemType = "custom"
)

// ItemTypes lists every valid ItemType.
func ItemTypes() []ItemType {
	return []ItemType{ItemTypeOpening, ItemTypeClosing, ItemTypeQA, ItemTypeCustom}
}

// TitleMaxLength is the maximum number of characters in a title.
const TitleMaxLength = 100

// Item is one version of a script.
type Item struct {
	bun.BaseModel `bun:"table:scripts,alias:s" json:"-" msgpack:"-"`

	ID        ItemID    `bun:"id,pk,type:uuid" json:"id" msgpack:"id"`
	Title     string    `bun:"title,notnull" json:"title" msgpack:"title"`
	Content   string    `bun:"content,notnull" json:"content" msgpack:"content"`
	ItemType  ItemType  `bun:"item_type,notnull" json:"item_type" msgpack:"item_type"`
	Version   int       `bun:"version,notnull" json:"version" msgpack:"version"`
	IsActive  bool      `bun:"is_active,notnull" json:"is_active" msgpack:"is_active"`
	SortOrder int       `bun:"sort_order,notnull" json:"sort_order" msgpack:"sort_order"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at" msgpack:"updated_at"`
	CreatedBy Actor     `bun:"created_by" json:"created_by" msgpack:"created_by"`
	UpdatedBy Actor     `bun:"updated_by" json:"updated_by" msgpack:"updated_by"`
}

// nextVersion clones the versioned fields of i into a fresh item.
func (i *Item) nextVersion(version int, actor Actor, now time.Time) *Item {
	return &Item{
		ID:        uuid.New(),
		Title:     i.Title,
		Content:   i.Content,
		ItemType:  i.ItemType,
		Version:   version,
		IsActive:  i.IsActive,
		SortOrder: i.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
	}
}

// Tag is the minimal view of a tag this store needs.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t" json:"-" msgpack:"-"`

	ID        TagID     `bun:"id,pk,autoincrement" json:"id" msgpack:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name" msgpack:"name"`
	IsActive  bool      `bun:"is_active,notnull" json:"is_active" msgpack:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at" msgpack:"updated_at"`
}

// ItemTag links an item to a tag.
type ItemTag struct {
	bun.BaseModel `bun:"table:script_tags,alias:st" json:"-" msgpack:"-"`

	ItemID    ItemID    `bun:"item_id,pk,type:uuid" json:"item_id" msgpack:"item_id"`
	TagID     TagID     `bun:"tag_id,pk" json:"tag_id" msgpack:"tag_id"`
	CreatedBy Actor     `bun:"created_by" json:"created_by" msgpack:"created_by"`
	UpdatedBy Actor     `bun:"updated_by" json:"updated_by" msgpack:"updated_by"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at" msgpack:"updated_at"`
}

// ItemFields are the caller-supplied fields of a new item.
type ItemFields struct {
	Title    string
	Content  string
	ItemType ItemType
	// IsActive defaults to true when nil.
	IsActive  *bool
	SortOrder int
}

func (f ItemFields) build(actor Actor, now time.Time) *Item {
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	return &Item{
		ID:        uuid.New(),
		Title:     f.Title,
		Content:   f.Content,
		ItemType:  f.ItemType,
		Version:   1,
		IsActive:  active,
		SortOrder: f.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
		UpdatedBy: actor,
	}
}

// ItemPatch holds the fields an update changes. Nil fields are left as they are.
// The version is never updatable.
type ItemPatch struct {
	Title     *string
	Content   *string
	ItemType  *ItemType
	IsActive  *bool
	SortOrder *int
}

func (p ItemPatch) apply(i *Item) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Content != nil {
		i.Content = *p.Content
	}
	if p.ItemType != nil {
		i.ItemType = *p.ItemType
	}
	if p.IsActive != nil {
		i.IsActive = *p.IsActive
	}
	if p.SortOrder != nil {
		i.SortOrder = *p.SortOrder
	}
}

// ListResult wraps a page of items with the total number of matches.
type ListResult struct {
	Records []*Item `json:"records" msgpack:"records"`
	Total   int     `json:"total" msgpack:"total"`
}
