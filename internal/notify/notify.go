// Package notify carries lifecycle events from the workflow to the persisted
// notification feed. Emitting never blocks and never fails the caller.
package notify

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Event types.
const (
	FoundItemCreated  = "found_item.created"
	FoundItemStatus   = "found_item.status_changed"
	FoundItemReturned = "found_item.returned"
	LostItemCreated   = "lost_item.created"
	LostItemStatus    = "lost_item.status_changed"
	MatchProposed     = "match.proposed"
	MatchApproved     = "match.approved"
	ClaimSubmitted    = "claim.submitted"
	ClaimConflicted   = "claim.conflicted"
	ClaimApproved     = "claim.approved"
	ClaimRejected     = "claim.rejected"
	ClaimEvidence     = "claim.evidence_added"
)

// Entity types.
const (
	EntityFoundItem = "found_item"
	EntityLostItem  = "lost_item"
	EntityMatch     = "match"
	EntityClaim     = "claim"
)

// Event describes something that happened to an entity. A nil RecipientID
// addresses the staff feed.
type Event struct {
	Type        string
	EntityType  string
	EntityID    int64
	ActorID     *int64
	RecipientID *int64
	Timestamp   time.Time
}

// Emitter accepts events.
type Emitter interface {
	Emit(Event)
}

// Discard is an Emitter that drops every event.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}

// DefaultQueueSize is used when NewHub is given a non-positive size.
const DefaultQueueSize = 256

// Hub queues events in a bounded channel and writes them to the notifications
// table from Run. When the queue is full new events are dropped.
type Hub struct {
	db      *sql.DB
	queue   chan Event
	dropped atomic.Int64
	written atomic.Int64
}

// NewHub creates a hub with room for size queued events.
func NewHub(db *sql.DB, size int) *Hub {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Hub{db: db, queue: make(chan Event, size)}
}

// Emit implements Emitter.
func (h *Hub) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case h.queue <- e:
	default:
		h.dropped.Add(1)
		slog.Warn("notification queue full, event dropped",
			"type", e.Type, "entity", e.EntityType, "id", e.EntityID)
	}
}

// writeTimeout bounds a single feed write. Writes outlive ctx cancellation so
// queued events survive shutdown.
const writeTimeout = 5 * time.Second

// Run writes queued events until ctx is cancelled, then flushes whatever is
// still queued and returns.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case e := <-h.queue:
			h.persist(ctx, e)
		case <-ctx.Done():
			h.flush(ctx)
			return nil
		}
	}
}

func (h *Hub) flush(ctx context.Context) {
	for {
		select {
		case e := <-h.queue:
			h.persist(ctx, e)
		default:
			return
		}
	}
}

func (h *Hub) persist(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	_, err := store.AppendNotification(ctx, h.db, &model.Notification{
		EventType:   e.Type,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		ActorID:     e.ActorID,
		RecipientID: e.RecipientID,
		CreatedAt:   e.Timestamp,
	})
	if err != nil {
		slog.Error("failed to persist notification", "type", e.Type, "error", err)
		return
	}
	h.written.Add(1)
}

// Dropped returns how many events were discarded because the queue was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Written returns how many events reached the notifications table.
func (h *Hub) Written() int64 { return h.written.Load() }
