package authz

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
	"github.com/frahmantamala/member-management/internal/role"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// RoleLoader reads role snapshots from storage.
type RoleLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*role.Role, error)
}

// RoleCache keeps Role->Permission snapshots keyed by role id. It never holds
// per-user decisions.
type RoleCache struct {
	loader  RoleLoader
	lru     *expirable.LRU[int64, *role.Role]
	metrics *observability.Metrics
	logger  *slog.Logger

	// gen moves on every invalidation; a load that overlapped one is
	// returned to its caller but not stored.
	mu  sync.Mutex
	gen uint64
}

func NewRoleCache(loader RoleLoader, size int, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RoleCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RoleCache{
		loader:  loader,
		lru:     expirable.NewLRU[int64, *role.Role](size, nil, ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns the roles for ids, loading misses in one call. Ids that no
// longer exist are skipped.
func (c *RoleCache) Get(ctx context.Context, ids []int64) ([]*role.Role, error) {
	out := make([]*role.Role, 0, len(ids))
	var missing []int64

	for _, id := range role.UniqueIDs(ids) {
		if r, ok := c.lru.Get(id); ok {
			c.metrics.RecordCacheHit()
			out = append(out, r.Clone())
			continue
		}
		c.metrics.RecordCacheMiss()
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	loaded, err := c.loader.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	fresh := gen == c.gen
	if fresh {
		for _, r := range loaded {
			c.lru.Add(r.ID, r.Clone())
		}
	}
	c.mu.Unlock()

	if !fresh {
		c.logger.Debug("discarding role load raced by an invalidation", "role_ids", missing)
	}
	return append(out, loaded...), nil
}

func (c *RoleCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Remove(id)
}

func (c *RoleCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

func (c *RoleCache) Len() int {
	return c.lru.Len()
}

// Subscribe wires the cache to the local event bus: role mutations drop the
// affected entry and catalog changes drop everything. Handlers run inside
// PublishSync, so the entry is gone before the mutating call returns.
func (c *RoleCache) Subscribe(bus *events.EventBus) {
	bus.SubscribeMany(c.onRoleChanged, events.RoleEventTypes...)
	bus.SubscribeMany(c.onCatalogChanged, events.EventTypePermissionsSynced, events.EventTypePermissionToggled)
}

func (c *RoleCache) onRoleChanged(_ context.Context, evt events.Event) error {
	changed, ok := evt.(*events.RoleChangedEvent)
	if !ok {
		c.Purge()
		c.metrics.RecordInvalidation("local")
		return nil
	}
	c.Invalidate(changed.RoleID)
	c.metrics.RecordInvalidation("local")
	c.logger.Debug("role cache entry invalidated", "role_id", changed.RoleID, "event_type", evt.EventType())
	return nil
}

func (c *RoleCache) onCatalogChanged(_ context.Context, evt events.Event) error {
	c.Purge()
	c.metrics.RecordInvalidation("local")
	c.logger.Debug("role cache purged", "event_type", evt.EventType())
	return nil
}
