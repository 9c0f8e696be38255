package workflow

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/cache"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(e notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.RecipientID == nil {
			out = append(out, e.Type)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	svc    *Service
	db     *sql.DB
	events *recorder
	campus *model.Campus
	staff  Actor
	ana    Actor
	ben    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewTestDB(t)
	events := &recorder{}
	f := &fixture{
		svc:    New(database, events, cache.New(100, time.Minute)),
		db:     database,
		events: events,
	}

	var err error
	f.campus, err = store.CreateCampus(ctx, database, "Main Campus", "MAIN")
	require.NoError(t, err)

	f.staff = f.user(t, "desk", model.RoleStaff)
	f.ana = f.user(t, "ana", model.RoleStudent)
	f.ben = f.user(t, "ben", model.RoleStudent)
	return f
}

func (f *fixture) user(t *testing.T, name, role string) Actor {
	t.Helper()
	u, err := store.CreateUser(context.Background(), f.db, name, "hash", role, &f.campus.ID)
	require.NoError(t, err)
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role}
}

var foundDay = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

// foundItem registers an item and moves it to status through the store.
func (f *fixture) foundItem(t *testing.T, status string) *model.FoundItem {
	t.Helper()
	ctx := context.Background()

	item, err := f.svc.CreateFoundItem(ctx, f.staff, FoundItemInput{
		Title:    "Black phone",
		Category: "Electronics",
		Location: "Library 2nd floor",
		FoundAt:  foundDay,
		CampusID: f.campus.ID,
	})
	require.NoError(t, err)

	for _, next := range model.FoundPath(item.Status, status) {
		require.NoError(t, store.SetFoundItemStatus(ctx, f.db, item.ID, item.Status, next))
		item.Status = next
	}
	return item
}

func (f *fixture) lostItem(t *testing.T, owner Actor, category, location string, lostAt time.Time) *model.LostItem {
	t.Helper()
	item, err := f.svc.CreateLostItem(context.Background(), owner, LostItemInput{
		Title:    "My " + category,
		Category: category,
		Location: location,
		LostAt:   lostAt,
		CampusID: f.campus.ID,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) claim(t *testing.T, who Actor, foundID int64) *model.Claim {
	t.Helper()
	c, err := f.svc.SubmitClaim(context.Background(), who, foundID, ClaimInput{Evidence: "it has a cracked corner"})
	require.NoError(t, err)
	return c
}

func (f *fixture) claimStatus(t *testing.T, id int64) string {
	t.Helper()
	c, err := store.GetClaim(context.Background(), f.db, id)
	require.NoError(t, err)
	return c.Status
}

func (f *fixture) foundStatus(t *testing.T, id int64) string {
	t.Helper()
	item, err := store.GetFoundItem(context.Background(), f.db, id)
	require.NoError(t, err)
	return item.Status
}
