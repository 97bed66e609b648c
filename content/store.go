package content

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-script-cache/logging"
)

// TagLookup answers whether a tag may be associated with an item.
type TagLookup interface {
	IsTagActive(ctx context.Context, id TagID) (bool, error)
}

// Store persists scripts and their tag relations.
type Store struct {
	db        *bun.DB
	items     repository.Repository[*Item]
	tags      TagLookup
	retry     RetryPolicy
	isolation sql.IsolationLevel
	transient func(error) bool
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for version and retry events.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithIsolation sets the isolation level of Postgres write transactions.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(s *Store) { s.isolation = level }
}

// WithTransientClassifier replaces IsTransient as the retry predicate.
func WithTransientClassifier(fn func(error) bool) Option {
	return func(s *Store) {
		if fn != nil {
			s.transient = fn
		}
	}
}

// WithTagLookup replaces the tags table as the source of tag activity.
func WithTagLookup(l TagLookup) Option {
	return func(s *Store) {
		if l != nil {
			s.tags = l
		}
	}
}

// NewStore builds a Store on top of db.
func NewStore(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		items:     repository.NewRepository[*Item](db, itemHandlers()),
		tags:      tagDirectory{db: db},
		retry:     DefaultRetryPolicy(),
		isolation: sql.LevelReadCommitted,
		transient: IsTransient,
		logger:    logging.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromConfig builds a Store applying the retry and isolation settings of cfg.
func NewStoreFromConfig(db *bun.DB, cfg Config, opts ...Option) *Store {
	base := []Option{
		WithRetryPolicy(cfg.Retry),
		WithIsolation(isolationLevels[cfg.Isolation]),
	}
	return NewStore(db, append(base, opts...)...)
}

func itemHandlers() repository.ModelHandlers[*Item] {
	return repository.ModelHandlers[*Item]{
		NewRecord: func() *Item { return &Item{} },
		GetID: func(i *Item) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Item, id uuid.UUID) {
			i.ID = id
		},
		GetIdentifier: func() string {
			return "title"
		},
	}
}

// DB returns the underlying bun handle.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the tables and indexes the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{(*Item)(nil), (*Tag)(nil), (*ItemTag)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return storeFailure("create table", err)
		}
	}

	indexes := []struct {
		name    string
		unique  bool
		columns []string
	}{
		{name: "scripts_title_version_uidx", unique: true, columns: []string{"title", "version"}},
		{name: "scripts_updated_at_idx", columns: []string{"updated_at"}},
		{name: "scripts_created_at_idx", columns: []string{"created_at"}},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().Model((*Item)(nil)).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return storeFailure("create index", err)
		}
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) txOptions() *sql.TxOptions {
	if s.db.Dialect().Name() != dialect.PG {
		return nil
	}
	return &sql.TxOptions{Isolation: s.isolation}
}

func (s *Store) retryable(err error) bool {
	var lost *lostRaceError
	if errors.As(err, &lost) {
		return true
	}
	return s.transient(err)
}

// writeTx runs fn in a transaction, retrying the whole transaction on
// transient failures. On SQLite the write lock is taken before fn runs.
func (s *Store) writeTx(ctx context.Context, op string, fn func(ctx context.Context, tx bun.Tx) error) error {
	onRetry := func(attempt int, wait time.Duration, err error) {
		s.logger.Warn("retrying store transaction", logging.Fields{
			"op":      op,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	attempts, exhausted, err := s.retry.run(ctx, s.retryable, onRetry, func(ctx context.Context) error {
		return s.db.RunInTx(ctx, s.txOptions(), func(ctx context.Context, tx bun.Tx) error {
			if err := s.beginWrite(ctx, tx); err != nil {
				return err
			}
			return fn(ctx, tx)
		})
	})
	if err == nil {
		return nil
	}
	if exhausted {
		s.logger.Error("store transaction retries exhausted", logging.Fields{
			"op":       op,
			"attempts": attempts,
			"error":    err.Error(),
		})
		return lockConflict(op, attempts, err)
	}
	return storeFailure(op, err)
}

// beginWrite makes a SQLite transaction a write transaction before it reads
// anything. A deferred transaction that reads first holds a shared lock and
// gets SQLITE_BUSY without waiting when it later tries to write while
// another connection holds the write lock. Writing first lets the busy
// timeout apply. Postgres needs nothing here.
func (s *Store) beginWrite(ctx context.Context, tx bun.Tx) error {
	if s.db.Dialect().Name() == dialect.PG {
		return nil
	}
	_, err := tx.NewUpdate().
		Model((*Item)(nil)).
		Set("version = version").
		Where("1 = 0").
		Exec(ctx)
	return err
}

// lockTitle takes an exclusive lock over every row of the title's chain.
// SQLite has no row locks; there beginWrite already holds the database
// write lock for the whole transaction.
func (s *Store) lockTitle(ctx context.Context, tx bun.Tx, title string) error {
	if s.db.Dialect().Name() != dialect.PG {
		return nil
	}
	var ids []uuid.UUID
	return tx.NewSelect().
		Model((*Item)(nil)).
		Column("id").
		Where("title = ?", title).
		For("UPDATE").
		Scan(ctx, &ids)
}

// maxVersion runs as its own statement so that it observes rows committed by
// the previous lock holder.
func maxVersion(ctx context.Context, tx bun.Tx, title string) (int, error) {
	var current sql.NullInt64
	err := tx.NewSelect().
		Model((*Item)(nil)).
		ColumnExpr("MAX(version)").
		Where("title = ?", title).
		Scan(ctx, &current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return int(current.Int64), nil
}

func getItemTx(ctx context.Context, tx bun.Tx, id ItemID) (*Item, error) {
	item := new(Item)
	err := tx.NewSelect().Model(item).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, itemNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

// CreateItem inserts the first version of a new title.
func (s *Store) CreateItem(ctx context.Context, fields ItemFields, actor Actor) (*Item, error) {
	item := fields.build(actor, s.timestamp())
	if err := item.Validate(); err != nil {
		return nil, err
	}

	err := s.writeTx(ctx, "create script", func(ctx context.Context, tx bun.Tx) error {
		if err := s.lockTitle(ctx, tx, item.Title); err != nil {
			return err
		}
		current, err := maxVersion(ctx, tx, item.Title)
		if err != nil {
			return err
		}
		if current > 0 {
			return titleExists(item.Title)
		}
		if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return titleExists(item.Title)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("script created", logging.Fields{"id": item.ID.String(), "title": item.Title, "version": item.Version})
	return item, nil
}

// GetItem returns one item by id.
func (s *Store) GetItem(ctx context.Context, id ItemID) (*Item, error) {
	item, err := s.items.GetByID(ctx, id.String())
	if err != nil {
		if isRecordNotFound(err) {
			return nil, itemNotFound(id)
		}
		return nil, storeFailure("get script", err)
	}
	return item, nil
}

// ListVersions returns every item of the title, newest version first.
func (s *Store) ListVersions(ctx context.Context, title string) ([]*Item, error) {
	var items []*Item
	err := s.db.NewSelect().
		Model(&items).
		Where("?TableAlias.title = ?", title).
		OrderExpr("?TableAlias.version DESC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeFailure("list versions", err)
	}
	return items, nil
}

// ListItems returns one page of items matching the filter.
func (s *Store) ListItems(ctx context.Context, filter Filter) (ListResult, error) {
	records, total, err := s.items.List(ctx, filter.criteria()...)
	if err != nil && !isRecordNotFound(err) {
		return ListResult{}, storeFailure("list scripts", err)
	}
	return ListResult{Records: records, Total: total}, nil
}

// UpdateItem applies patch to the item. The version is never changed. It
// returns the item as it was before and after the update.
func (s *Store) UpdateItem(ctx context.Context, id ItemID, patch ItemPatch, actor Actor) (before, after *Item, err error) {
	err = s.writeTx(ctx, "update script", func(ctx context.Context, tx bun.Tx) error {
		current, err := getItemTx(ctx, tx, id)
		if err != nil {
			return err
		}
		previous := *current

		patch.apply(current)
		current.UpdatedAt = s.timestamp()
		current.UpdatedBy = actor
		if err := current.Validate(); err != nil {
			return err
		}

		if current.Title != previous.Title {
			if err := s.lockTitle(ctx, tx, current.Title); err != nil {
				return err
			}
			taken, err := maxVersion(ctx, tx, current.Title)
			if err != nil {
				return err
			}
			if taken > 0 {
				return titleExists(current.Title)
			}
		}

		_, err = tx.NewUpdate().
			Model(current).
			Column("title", "content", "item_type", "is_active", "sort_order", "updated_at", "updated_by").
			WherePK().
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return titleExists(current.Title)
			}
			return err
		}

		before, after = &previous, current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// DeleteItem removes an item and its tag relations. Surviving versions of the
// same title keep their numbers. It returns the deleted item.
func (s *Store) DeleteItem(ctx context.Context, id ItemID) (*Item, error) {
	var deleted *Item
	err := s.writeTx(ctx, "delete script", func(ctx context.Context, tx bun.Tx) error {
		item, err := getItemTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*ItemTag)(nil)).Where("item_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model(item).WherePK().Exec(ctx); err != nil {
			return err
		}
		deleted = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("script deleted", logging.Fields{"id": id.String(), "title": deleted.Title, "version": deleted.Version})
	return deleted, nil
}
