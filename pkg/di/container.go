package di

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-script-cache/cache"
	"github.com/goliatone/go-script-cache/content"
	"github.com/goliatone/go-script-cache/logging"
	"github.com/goliatone/go-script-cache/monitor"
	"github.com/goliatone/go-script-cache/scriptcache"
	"github.com/goliatone/go-script-cache/warmup"
)

// Container builds and owns the components of a script cache deployment:
// the database handle, the content store, the cache backend and manager,
// the monitor, the warmup scheduler and the service composing them.
type Container struct {
	config Config
	logger logging.Logger

	db      *bun.DB
	store   *content.Store
	backend cache.Backend
	manager *cache.Manager
	monitor *monitor.Monitor
	warmup  *warmup.Scheduler
	service *scriptcache.Service

	ownsDB      bool
	ownsBackend bool
}

// Option overrides a component the Container would otherwise build.
type Option func(*Container)

// WithDB uses an existing database handle. The Container does not close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) { c.db = db }
}

// WithBackend uses an existing cache backend. The Container does not close it.
func WithBackend(b cache.Backend) Option {
	return func(c *Container) { c.backend = b }
}

// WithLogger uses l instead of the logger built from Config.Logging.
func WithLogger(l logging.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// NewContainer validates cfg and wires every component. On error, whatever
// was opened is closed again.
func NewContainer(ctx context.Context, cfg Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.build(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDefaults creates a Container from DefaultConfig.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, DefaultConfig(), opts...)
}

func (c *Container) build(ctx context.Context) error {
	var err error

	if c.logger == nil {
		if c.logger, err = logging.New(c.config.Logging); err != nil {
			return err
		}
	}

	if c.db == nil {
		if c.db, err = content.Open(ctx, c.config.Store); err != nil {
			return err
		}
		c.ownsDB = true
	}
	c.store = content.NewStoreFromConfig(c.db, c.config.Store, content.WithLogger(c.logger))

	if c.backend == nil {
		if c.backend, err = cache.NewBackend(ctx, c.config.Cache); err != nil {
			return err
		}
		c.ownsBackend = true
	}

	c.monitor = monitor.New()
	c.manager, err = cache.NewManagerFromConfig(c.backend, c.config.Cache,
		cache.WithObserver(c.monitor),
		cache.WithLogger(c.logger),
	)
	if err != nil {
		return err
	}

	c.warmup, err = warmup.New(c.store, c.manager, c.config.Warmup, warmup.WithLogger(c.logger))
	if err != nil {
		return err
	}

	c.service = scriptcache.New(c.store, c.manager, c.monitor, c.warmup, scriptcache.WithLogger(c.logger))
	return nil
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() logging.Logger {
	return c.logger
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Store returns the content store.
func (c *Container) Store() *content.Store {
	return c.store
}

// Backend returns the cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// Manager returns the cache manager.
func (c *Container) Manager() *cache.Manager {
	return c.manager
}

// Monitor returns the cache monitor.
func (c *Container) Monitor() *monitor.Monitor {
	return c.monitor
}

// Warmup returns the warmup scheduler.
func (c *Container) Warmup() *warmup.Scheduler {
	return c.warmup
}

// Service returns the cached script service.
func (c *Container) Service() *scriptcache.Service {
	return c.service
}

// StartWarmup runs the scheduler every Config.Warmup.Interval in a goroutine
// until ctx is done. It does nothing when the interval is zero.
func (c *Container) StartWarmup(ctx context.Context) {
	interval := c.config.Warmup.Interval
	if interval <= 0 {
		return
	}
	go func() {
		if err := c.warmup.Every(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("periodic warmup stopped", logging.Fields{"error": err.Error()})
		}
	}()
}

// StartStatsPublisher publishes the service's cache statistics every
// Config.Stats.PublishInterval in a goroutine until ctx is done, with a last
// publish on the way out. It does nothing when the interval is zero.
func (c *Container) StartStatsPublisher(ctx context.Context) {
	interval := c.config.Stats.PublishInterval
	if interval <= 0 {
		return
	}
	go c.publishStats(ctx, interval)
}

func (c *Container) publishStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.service.PublishCacheStats(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			c.service.PublishCacheStats(ctx)
		}
	}
}

// Run does the background work of a long-lived process until ctx is done:
// periodic warmup in a goroutine and statistics publishing in the caller's
// goroutine. It returns after the last publish, so closing the Container
// afterwards is safe.
func (c *Container) Run(ctx context.Context) error {
	c.StartWarmup(ctx)

	if interval := c.config.Stats.PublishInterval; interval > 0 {
		c.publishStats(ctx, interval)
		return nil
	}
	<-ctx.Done()
	return nil
}

// Close releases the backend and database the Container opened itself.
func (c *Container) Close() error {
	var errs []error
	if c.ownsBackend && c.backend != nil {
		errs = append(errs, c.backend.Close())
	}
	if c.ownsDB && c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}
