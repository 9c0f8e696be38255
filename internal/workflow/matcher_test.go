package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

func day(d int) time.Time { return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC) }

func TestScore(t *testing.T) {
	found := &model.FoundItem{Category: "electronics", FoundLocation: "Library 2nd floor", FoundAt: day(10)}

	tests := []struct {
		name string
		lost model.LostItem
		want int
	}{
		{"perfect", model.LostItem{Category: "Electronics", LostLocation: "library 2ND floor", LostAt: day(10)}, 100},
		{"shared word, three days", model.LostItem{Category: "electronics", LostLocation: "Main library", LostAt: day(7)}, 50 + 15 + 14},
		{"stop word only", model.LostItem{Category: "electronics", LostLocation: "3rd floor", LostAt: day(10)}, 70},
		{"other category", model.LostItem{Category: "clothing", LostLocation: "Gym", LostAt: day(9)}, 18},
		{"lost after found", model.LostItem{Category: "electronics", LostLocation: "Gym", LostAt: day(11)}, 50},
		{"long ago", model.LostItem{Category: "clothing", LostLocation: "Gym", LostAt: day(1).AddDate(0, -2, 0)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(found, &tt.lost))
		})
	}
}

func TestProposeCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)

	best := f.lostItem(t, f.ana, "electronics", "Library 2nd floor", day(10))
	second := f.lostItem(t, f.ben, "electronics", "Main library", day(7))
	third := f.lostItem(t, f.ana, "clothing", "Gym", day(9))
	// Lost after it was found.
	f.lostItem(t, f.ana, "electronics", "Library", day(12))
	// Scores zero.
	f.lostItem(t, f.ana, "clothing", "Gym", day(1).AddDate(0, -2, 0))
	closed := f.lostItem(t, f.ben, "electronics", "Library 2nd floor", day(10))
	_, err := f.svc.UpdateLostStatus(ctx, f.ben, closed.ID, model.LostStatusClosed)
	require.NoError(t, err)

	other, err := store.CreateCampus(ctx, f.db, "North", "N")
	require.NoError(t, err)
	_, err = f.svc.CreateLostItem(ctx, f.ana, LostItemInput{Title: "x", Category: "electronics",
		Location: "Library 2nd floor", LostAt: day(10), CampusID: other.ID})
	require.NoError(t, err)

	cands, err := f.svc.ProposeCandidates(ctx, found.ID)
	require.NoError(t, err)

	var ids []int64
	var scores []int
	for c := range cands.All() {
		ids = append(ids, c.LostItem.ID)
		scores = append(scores, c.Score)
	}
	require.NoError(t, cands.Err())
	assert.Equal(t, []int64{best.ID, second.ID, third.ID}, ids)
	assert.Equal(t, []int{100, 79, 18}, scores)

	// Exhausted sequences stay exhausted.
	_, ok := cands.Next()
	assert.False(t, ok)
}

func TestCandidatesAreLazyAndNotRestartable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)

	cands, err := f.svc.ProposeCandidates(ctx, found.ID)
	require.NoError(t, err)

	// Reports filed before the first Next are still seen.
	first := f.lostItem(t, f.ana, "electronics", "Library 2nd floor", day(10))
	f.lostItem(t, f.ben, "electronics", "Library", day(9))

	c, ok := cands.Next()
	require.True(t, ok)
	assert.Equal(t, first.ID, c.LostItem.ID)

	require.NoError(t, cands.Close())
	_, ok = cands.Next()
	assert.False(t, ok, "closed sequence must yield nothing")
}

func TestCandidatesSkipMatchedReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	matched := f.lostItem(t, f.ana, "electronics", "Library 2nd floor", day(10))
	open := f.lostItem(t, f.ben, "electronics", "Library", day(10))

	_, err := f.svc.CreateMatch(ctx, f.staff, found.ID, matched.ID)
	require.NoError(t, err)

	cands, err := f.svc.ProposeCandidates(ctx, found.ID)
	require.NoError(t, err)
	c, ok := cands.Next()
	require.True(t, ok)
	assert.Equal(t, open.ID, c.LostItem.ID)
	_, ok = cands.Next()
	assert.False(t, ok)
}

func TestProposeCandidatesErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProposeCandidates(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	returned := f.foundItem(t, model.FoundStatusReturned)
	_, err = f.svc.ProposeCandidates(ctx, returned.ID)
	assert.ErrorIs(t, err, ErrItemNotEligible)
}

func TestCreateMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	report := f.lostItem(t, f.ana, "electronics", "Main library", day(7))

	m, err := f.svc.CreateMatch(ctx, f.staff, found.ID, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusProposed, m.Status)
	assert.Equal(t, 79, m.Score)

	_, err = f.svc.CreateMatch(ctx, f.staff, found.ID, report.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.CreateMatch(ctx, f.staff, found.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.CreateMatch(ctx, f.staff, 999, report.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateMatchEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	returned := f.foundItem(t, model.FoundStatusReturned)
	report := f.lostItem(t, f.ana, "electronics", "Library", day(10))
	_, err := f.svc.CreateMatch(ctx, f.staff, returned.ID, report.ID)
	assert.ErrorIs(t, err, ErrItemNotEligible)

	found := f.foundItem(t, model.FoundStatusStored)
	closed := f.lostItem(t, f.ana, "electronics", "Library", day(10))
	_, err = f.svc.UpdateLostStatus(ctx, f.ana, closed.ID, model.LostStatusClosed)
	require.NoError(t, err)
	_, err = f.svc.CreateMatch(ctx, f.staff, found.ID, closed.ID)
	assert.ErrorIs(t, err, ErrItemNotEligible)
}

func TestApproveMatchReturnsItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	report := f.lostItem(t, f.ana, "electronics", "Library 2nd floor", day(10))
	pending := f.claim(t, f.ben, found.ID)

	m, err := f.svc.CreateMatch(ctx, f.staff, found.ID, report.ID)
	require.NoError(t, err)

	approved, err := f.svc.ApproveMatch(ctx, f.staff, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusReturned, approved.Status)
	assert.Equal(t, model.FoundStatusReturned, f.foundStatus(t, found.ID))

	lostNow, err := f.svc.GetLostItem(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LostStatusClosed, lostNow.Status)

	assert.Equal(t, model.ClaimStatusRejected, f.claimStatus(t, pending.ID))

	_, err = f.svc.ApproveMatch(ctx, f.staff, m.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.ApproveMatch(ctx, f.staff, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMatchesCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)

	none, err := f.svc.ListMatches(ctx, found.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	report := f.lostItem(t, f.ana, "electronics", "Library", day(10))
	_, err = f.svc.CreateMatch(ctx, f.staff, found.ID, report.ID)
	require.NoError(t, err)

	one, err := f.svc.ListMatches(ctx, found.ID, 0)
	require.NoError(t, err)
	assert.Len(t, one, 1, "creating a match must invalidate the cached listing")
}
