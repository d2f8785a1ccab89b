package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/observability"
)

const DefaultInvalidationChannel = "rbac:invalidate"

// invalidation is the pub/sub payload. RoleID zero means purge everything.
type invalidation struct {
	Origin string `json:"origin"`
	RoleID int64  `json:"roleId,omitempty"`
}

// CodeInvalidator drops a cached view of the permission catalog.
type CodeInvalidator interface {
	Invalidate()
}

// Broadcaster relays local cache invalidations to other instances over
// redis pub/sub and applies theirs to the local RoleCache. Purge messages
// also drop the local active-code snapshot when codes is set.
type Broadcaster struct {
	client   *redis.Client
	channel  string
	instance string
	cache    *RoleCache
	codes    CodeInvalidator
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewBroadcaster(client *redis.Client, channel string, cache *RoleCache, codes CodeInvalidator, metrics *observability.Metrics, logger *slog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &Broadcaster{
		client:   client,
		channel:  channel,
		instance: uuid.New().String(),
		cache:    cache,
		codes:    codes,
		metrics:  metrics,
		logger:   logger,
	}
}

// Subscribe forwards local role and catalog events to the channel.
func (b *Broadcaster) Subscribe(bus *events.EventBus) {
	bus.SubscribeMany(func(ctx context.Context, evt events.Event) error {
		if changed, ok := evt.(*events.RoleChangedEvent); ok {
			return b.publish(ctx, changed.RoleID)
		}
		return b.publish(ctx, 0)
	}, events.RoleEventTypes...)

	bus.SubscribeMany(func(ctx context.Context, _ events.Event) error {
		return b.publish(ctx, 0)
	}, events.EventTypePermissionsSynced, events.EventTypePermissionToggled)
}

func (b *Broadcaster) publish(ctx context.Context, roleID int64) error {
	payload, err := json.Marshal(invalidation{Origin: b.instance, RoleID: roleID})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Run listens on the channel until ctx is done. Messages sent by this
// instance are ignored.
func (b *Broadcaster) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("listening for role cache invalidations", "channel", b.channel, "instance", b.instance)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.apply(msg.Payload)
		}
	}
}

func (b *Broadcaster) apply(raw string) {
	var inv invalidation
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		b.logger.Warn("ignoring malformed invalidation", "error", err)
		return
	}
	if inv.Origin == b.instance {
		return
	}

	if inv.RoleID == 0 {
		b.cache.Purge()
		if b.codes != nil {
			b.codes.Invalidate()
		}
	} else {
		b.cache.Invalidate(inv.RoleID)
	}
	b.metrics.RecordInvalidation("remote")
	b.logger.Debug("applied remote invalidation", "origin", inv.Origin, "role_id", inv.RoleID)
}
