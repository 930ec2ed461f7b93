package watcher

import (
	"context"

	"loancrm_backend/internal/events"
)

// Subscribe feeds lead status changes from the bus into the watcher.
func (w *Watcher) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadStatusChanged)
		if !ok {
			return nil
		}
		_, err := w.Observe(ctx, Observation{
			LeadID:       e.LeadID,
			OwnerID:      e.OwnerID,
			ActorID:      e.ActorID,
			Status:       e.NewStatus,
			OldStatus:    e.OldStatus,
			RecordTypeID: e.RecordTypeID,
			IsConverted:  e.IsConverted,
		})
		return err
	}))
}
