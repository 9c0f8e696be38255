// Package workflow holds the lost and found rules: registering items,
// proposing matches, handling claims, resolving competing claims and
// finalizing returns. Every mutation runs in one transaction; events and cache
// invalidations are released only after it commits.
package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/cache"
	"github.com/erazemk/najdeno/internal/notify"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID       int64
	Username string
	Role     string
}

func (a Actor) ref() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

// Service runs workflow operations against the database.
type Service struct {
	DB     *sql.DB
	Notify notify.Emitter
	Cache  *cache.Cache

	now func() time.Time
}

// New creates a service. A nil emitter discards events and a nil cache
// disables caching.
func New(db *sql.DB, emitter notify.Emitter, c *cache.Cache) *Service {
	if emitter == nil {
		emitter = notify.Discard{}
	}
	return &Service{DB: db, Notify: emitter, Cache: c, now: time.Now}
}

// txn is an open transaction plus the side effects to release on commit.
type txn struct {
	*sql.Tx
	at     time.Time
	events []notify.Event
	stale  []string
}

// emit queues an event for the staff feed and, when the entity has an owner
// other than the actor, a copy addressed to that owner.
func (t *txn) emit(typ, entity string, id int64, actor Actor, owner *int64) {
	e := notify.Event{Type: typ, EntityType: entity, EntityID: id, ActorID: actor.ref(), Timestamp: t.at}
	t.events = append(t.events, e)
	if owner != nil && *owner != actor.ID {
		e.RecipientID = owner
		t.events = append(t.events, e)
	}
}

// invalidate records cache keys made stale by this transaction.
func (t *txn) invalidate(keys ...string) {
	t.stale = append(t.stale, keys...)
}

func (s *Service) inTx(ctx context.Context, fn func(t *txn) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t := &txn{Tx: tx, at: s.now().UTC()}
	if err := fn(t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.Cache.Invalidate(t.stale...)
	for _, e := range t.events {
		s.Notify.Emit(e)
	}
	return nil
}
