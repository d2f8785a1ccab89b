package observability

import (
	"context"
	"fmt"

	"github.com/frahmantamala/member-management/internal/core/events"
)

// Subscribe counts catalog reconciliations published on the bus. A run with
// invalid definitions counts as failed.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	if m == nil {
		return
	}
	bus.Subscribe(events.EventTypePermissionsSynced, func(_ context.Context, evt events.Event) error {
		synced, ok := evt.(*events.PermissionsSyncedEvent)
		if !ok {
			return nil
		}
		var err error
		if synced.Errors > 0 {
			err = fmt.Errorf("%d invalid definitions", synced.Errors)
		}
		m.RecordCatalogSync(err)
		return nil
	})
}
