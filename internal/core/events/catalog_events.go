package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCatalogEventViewed = "catalog.event_viewed"
)

// CatalogEventViewed is published when a public event page is served.
type CatalogEventViewed struct {
	BaseEvent
	CatalogEventID string `json:"catalog_event_id"`
	Slug           string `json:"slug"`
}

func NewCatalogEventViewed(eventID, slug string) *CatalogEventViewed {
	return &CatalogEventViewed{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCatalogEventViewed,
			Timestamp: time.Now(),
		},
		CatalogEventID: eventID,
		Slug:           slug,
	}
}
