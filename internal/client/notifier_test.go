package client_test

import (
	"fmt"
	"time"

	"github.com/frahmantamala/member-management/internal/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Notifier", func() {
	var (
		clock    time.Time
		notifier *client.Notifier
	)

	BeforeEach(func() {
		clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		notifier = client.NewNotifier(func() time.Time { return clock })
	})

	denial := func(path, code string) client.DenialEvent {
		return client.DenialEvent{Path: path, RequiredPermission: code}
	}

	It("should id events by permission and time and keep them newest first", func() {
		first := notifier.Record(denial("/roller", "ROLLER_GORUNTULEME"))
		clock = clock.Add(time.Second)
		second := notifier.Record(denial("/kisiler", "KISI_V"))

		Expect(first.ID).To(Equal(fmt.Sprintf("ROLLER_GORUNTULEME-%d", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).UnixMilli())))
		list := notifier.List()
		Expect(list).To(HaveLen(2))
		Expect(list[0].ID).To(Equal(second.ID))
		Expect(notifier.UnreadCount()).To(Equal(2))
	})

	It("should fold a repeated unread denial into the existing event", func() {
		// Given
		first := notifier.Record(denial("/roller", "ROLLER_GORUNTULEME"))
		clock = clock.Add(time.Minute)

		// When
		again := notifier.Record(denial("/roller", "ROLLER_GORUNTULEME"))

		// Then
		Expect(again.ID).To(Equal(first.ID))
		Expect(again.Timestamp).To(Equal(clock))
		Expect(notifier.List()).To(HaveLen(1))
		Expect(notifier.UnreadCount()).To(Equal(1))
	})

	It("should start a new event once the old one was read", func() {
		first := notifier.Record(denial("/roller", "ROLLER_GORUNTULEME"))
		Expect(notifier.MarkRead(first.ID)).To(BeTrue())
		clock = clock.Add(time.Minute)

		again := notifier.Record(denial("/roller", "ROLLER_GORUNTULEME"))

		Expect(again.ID).NotTo(Equal(first.ID))
		Expect(notifier.List()).To(HaveLen(2))
		Expect(notifier.UnreadCount()).To(Equal(1))
	})

	It("should mark every event sharing an id", func() {
		// Given
		first := notifier.Record(denial("/kisiler", "KISI_V"))
		second := notifier.Record(denial("/kisiler/5", "KISI_V"))
		Expect(second.ID).To(Equal(first.ID))
		Expect(notifier.List()).To(HaveLen(2))

		// When
		Expect(notifier.MarkRead(first.ID)).To(BeTrue())

		// Then
		Expect(notifier.UnreadCount()).To(Equal(0))
	})

	It("should report unknown ids when marking read", func() {
		Expect(notifier.MarkRead("nope")).To(BeFalse())
	})

	It("should keep at most the default capacity", func() {
		for i := 0; i < client.DefaultNotifierCapacity+5; i++ {
			clock = clock.Add(time.Millisecond)
			notifier.Record(denial(fmt.Sprintf("/p/%d", i), "KISI_V"))
		}

		list := notifier.List()
		Expect(list).To(HaveLen(client.DefaultNotifierCapacity))
		Expect(list[0].Path).To(Equal(fmt.Sprintf("/p/%d", client.DefaultNotifierCapacity+4)))
	})

	It("should mark everything read and clear on demand", func() {
		notifier.Record(denial("/a", "A"))
		notifier.Record(denial("/b", "B"))

		notifier.MarkAllRead()
		Expect(notifier.UnreadCount()).To(Equal(0))

		notifier.ClearAll()
		Expect(notifier.List()).To(BeEmpty())
		_, ok := notifier.Current()
		Expect(ok).To(BeFalse())
	})

	It("should expose and dismiss the current event without touching history", func() {
		stored := notifier.Record(denial("/a", "A"))

		current, ok := notifier.Current()
		Expect(ok).To(BeTrue())
		Expect(current.ID).To(Equal(stored.ID))

		notifier.DismissCurrent()
		_, ok = notifier.Current()
		Expect(ok).To(BeFalse())
		Expect(notifier.List()).To(HaveLen(1))
	})
})
