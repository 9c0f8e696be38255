package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

func TestFinalizeReturnTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	c := f.claim(t, f.ana, found.ID)

	_, err := f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusApproved})
	require.NoError(t, err)

	before, err := store.GetFoundItem(ctx, f.db, found.ID)
	require.NoError(t, err)
	logBefore := actions(t, f, c.ID)
	f.events.reset()

	_, err = f.svc.FinalizeReturn(ctx, f.staff, found.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	after, err := store.GetFoundItem(ctx, f.db, found.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "second finalize must not touch the item")
	assert.Equal(t, logBefore, actions(t, f, c.ID))
	assert.Empty(t, f.events.types())
}

func TestFinalizeReturnRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusClaimed)
	f.claim(t, f.ana, found.ID)

	_, err := f.svc.FinalizeReturn(ctx, f.staff, found.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.FoundStatusClaimed, f.foundStatus(t, found.ID))

	_, err = f.svc.FinalizeReturn(ctx, f.staff, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinalizeFromUnclaimedWalksEveryStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusUnclaimed)
	report := f.lostItem(t, f.ana, "electronics", "Library", day(10))

	m, err := f.svc.CreateMatch(ctx, f.staff, found.ID, report.ID)
	require.NoError(t, err)
	// Approve through the store so the finalizer runs on its own.
	require.NoError(t, store.SetMatchStatus(ctx, f.db, m.ID, model.MatchStatusProposed, model.MatchStatusApproved))

	item, err := f.svc.FinalizeReturn(ctx, f.staff, found.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FoundStatusReturned, item.Status)

	mNow, err := store.GetMatch(ctx, f.db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusReturned, mNow.Status)
	assert.Contains(t, f.events.types(), notify.FoundItemReturned)
}

func TestReturnedItemNotifiesClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	c := f.claim(t, f.ana, found.ID)
	f.events.reset()

	_, err := f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusApproved})
	require.NoError(t, err)

	var toAna []string
	for _, e := range f.events.events {
		if e.RecipientID != nil && *e.RecipientID == f.ana.ID {
			toAna = append(toAna, e.Type)
		}
	}
	assert.Equal(t, []string{notify.ClaimApproved, notify.FoundItemReturned}, toAna)
}
