package model

import "time"

// Notification is one entry in the persisted notification feed.
// A nil RecipientID addresses the staff feed.
type Notification struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"event_type"`
	EntityType  string    `json:"entity_type"`
	EntityID    int64     `json:"entity_id"`
	ActorID     *int64    `json:"actor_id,omitempty"`
	RecipientID *int64    `json:"recipient_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
