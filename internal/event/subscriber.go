package event

import (
	"context"
	"fmt"

	"github.com/Merchously/iRun/internal/core/events"
)

type viewIncrementer interface {
	IncrementViewCount(ctx context.Context, id string) error
}

// RegisterSubscribers wires the catalog's bus handlers.
func RegisterSubscribers(bus *events.EventBus, svc viewIncrementer) {
	bus.Subscribe(events.EventTypeCatalogEventViewed, func(ctx context.Context, e events.Event) error {
		viewed, ok := e.(*events.CatalogEventViewed)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", e, e.EventType())
		}
		return svc.IncrementViewCount(ctx, viewed.CatalogEventID)
	})
}
