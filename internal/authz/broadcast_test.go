package authz_test

import (
	"context"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/role"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// snapshotSpy counts catalog snapshot invalidations.
type snapshotSpy struct {
	mu    sync.Mutex
	count int
}

func (s *snapshotSpy) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

func (s *snapshotSpy) invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

var _ = Describe("Broadcaster", func() {
	var (
		codes    *snapshotSpy
		ctx      context.Context
		cancel   context.CancelFunc
		server   *miniredis.Miniredis
		local    *events.EventBus
		remote   *authz.RoleCache
		sender   *authz.Broadcaster
		receiver *authz.Broadcaster
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		server = miniredis.RunT(GinkgoT())

		newClient := func() *redis.Client {
			c := redis.NewClient(&redis.Options{Addr: server.Addr()})
			DeferCleanup(c.Close)
			return c
		}

		store := newFakeRoles(&role.Role{ID: 1, Name: "Editor", Permissions: []string{"KISI_V"}, IsActive: true})
		localCache := authz.NewRoleCache(store, 0, time.Minute, nil, quietLogger())
		remote = authz.NewRoleCache(store, 0, time.Minute, nil, quietLogger())

		local = events.NewEventBus(quietLogger())
		sender = authz.NewBroadcaster(newClient(), "", localCache, nil, nil, quietLogger())
		sender.Subscribe(local)

		codes = &snapshotSpy{}
		receiver = authz.NewBroadcaster(newClient(), "", remote, codes, nil, quietLogger())
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			Expect(receiver.Run(ctx)).To(Succeed())
		}()
		DeferCleanup(func() {
			cancel()
			Eventually(done).Should(BeClosed())
		})

		Eventually(func() int {
			return server.PubSubNumSub(authz.DefaultInvalidationChannel)[authz.DefaultInvalidationChannel]
		}).Should(Equal(1))
	})

	It("should evict the role on other instances after a local update", func() {
		// Given
		_, err := remote.Get(ctx, []int64{1})
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.Len()).To(Equal(1))

		// When
		Expect(local.PublishSync(ctx, events.NewRoleChangedEvent(events.EventTypeRoleUpdated, 1, "Editor", nil))).To(Succeed())

		// Then
		Eventually(remote.Len).Should(Equal(0))
		Expect(codes.invalidations()).To(Equal(0))
	})

	It("should purge other instances after a catalog sync", func() {
		_, err := remote.Get(ctx, []int64{1})
		Expect(err).NotTo(HaveOccurred())

		Expect(local.PublishSync(ctx, events.NewPermissionsSyncedEvent(1, 0, 0, 0, "test"))).To(Succeed())

		Eventually(remote.Len).Should(Equal(0))
		Eventually(codes.invalidations).Should(Equal(1))
	})

	It("should drop the active codes on other instances after a permission is deactivated", func() {
		// When
		Expect(local.PublishSync(ctx, events.NewPermissionToggledEvent("KISI_V", false, nil))).To(Succeed())

		// Then
		Eventually(codes.invalidations).Should(Equal(1))
	})

	It("should ignore its own messages", func() {
		// Given
		_, err := remote.Get(ctx, []int64{1})
		Expect(err).NotTo(HaveOccurred())
		own := events.NewEventBus(quietLogger())
		receiver.Subscribe(own)

		// When
		Expect(own.PublishSync(ctx, events.NewRoleChangedEvent(events.EventTypeRoleDeleted, 1, "Editor", nil))).To(Succeed())

		// Then
		Consistently(remote.Len, 200*time.Millisecond).Should(Equal(1))
		Expect(codes.invalidations()).To(Equal(0))
	})
})
