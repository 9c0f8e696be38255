package workflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

func actions(t *testing.T, f *fixture, claimID int64) []string {
	t.Helper()
	entries, err := f.svc.ClaimLog(context.Background(), claimID)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestSubmitClaim(t *testing.T) {
	f := newFixture(t)
	found := f.foundItem(t, model.FoundStatusStored)
	f.events.reset()

	c := f.claim(t, f.ana, found.ID)
	assert.Equal(t, model.ClaimStatusPending, c.Status)
	assert.Equal(t, f.ana.ID, c.ClaimantID)
	assert.Equal(t, "ana", c.ClaimantName)
	assert.Equal(t, []string{model.ActionSubmitted}, actions(t, f, c.ID))
	assert.Equal(t, []string{notify.ClaimSubmitted}, f.events.types())
}

func TestSubmitClaimErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)

	_, err := f.svc.SubmitClaim(ctx, f.ana, 999, ClaimInput{Evidence: "mine"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SubmitClaim(ctx, f.ana, found.ID, ClaimInput{Evidence: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	report := f.lostItem(t, f.ben, "electronics", "Library", day(10))
	_, err = f.svc.SubmitClaim(ctx, f.ana, found.ID, ClaimInput{Evidence: "mine", LostItemID: &report.ID})
	assert.ErrorIs(t, err, ErrInvalidInput, "cannot link someone else's report")

	f.claim(t, f.ana, found.ID)
	_, err = f.svc.SubmitClaim(ctx, f.ana, found.ID, ClaimInput{Evidence: "mine again"})
	assert.ErrorIs(t, err, ErrConflict, "one open claim per claimant and item")
}

func TestSubmitClaimOnReturnedItem(t *testing.T) {
	f := newFixture(t)
	found := f.foundItem(t, model.FoundStatusReturned)

	_, err := f.svc.SubmitClaim(context.Background(), f.ana, found.ID, ClaimInput{Evidence: "that is my phone"})
	assert.ErrorIs(t, err, ErrItemNotClaimable)

	page, err := f.svc.ListClaims(context.Background(), store.ClaimFilter{FoundItemID: found.ID}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestTwoPendingClaimsAreBothConflicted(t *testing.T) {
	f := newFixture(t)
	found := f.foundItem(t, model.FoundStatusStored)

	c1 := f.claim(t, f.ana, found.ID)
	c2 := f.claim(t, f.ben, found.ID)

	assert.Equal(t, model.ClaimStatusConflicted, c2.Status)
	assert.Equal(t, model.ClaimStatusConflicted, f.claimStatus(t, c1.ID))
	assert.Equal(t, model.ClaimStatusConflicted, f.claimStatus(t, c2.ID))
	assert.Equal(t, []string{model.ActionSubmitted, model.ActionConflicted}, actions(t, f, c1.ID))

	// A third claimant joins the conflict; earlier conflicts are not re-logged.
	carl := f.user(t, "carl", model.RoleStudent)
	c3 := f.claim(t, carl, found.ID)
	assert.Equal(t, model.ClaimStatusConflicted, c3.Status)
	assert.Equal(t, []string{model.ActionSubmitted, model.ActionConflicted}, actions(t, f, c1.ID))
}

// F1 (stored) receives C1 then C2, both are conflicted, and approving C1
// rejects C2 and returns F1.
func TestConflictThenApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f1 := f.foundItem(t, model.FoundStatusStored)

	c1 := f.claim(t, f.ana, f1.ID)
	require.Equal(t, model.ClaimStatusPending, c1.Status)
	c2 := f.claim(t, f.ben, f1.ID)

	require.Equal(t, model.ClaimStatusConflicted, f.claimStatus(t, c1.ID))
	require.Equal(t, model.ClaimStatusConflicted, f.claimStatus(t, c2.ID))

	approved, err := f.svc.VerifyClaim(ctx, f.staff, c1.ID, Decision{Status: model.ClaimStatusApproved, Reason: "described the crack"})
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusApproved, approved.Status)
	assert.Equal(t, "described the crack", approved.DecisionReason)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, f.staff.ID, *approved.DecidedBy)

	rejected, err := f.svc.GetClaim(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusRejected, rejected.Status)
	assert.Equal(t, reasonSiblingApproved, rejected.DecisionReason)

	assert.Equal(t, model.FoundStatusReturned, f.foundStatus(t, f1.ID))

	winner, err := store.GetApprovedClaim(ctx, f.db, f1.ID)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, c1.ID, winner.ID)

	assert.Equal(t, []string{model.ActionSubmitted, model.ActionConflicted, model.ActionApproved, model.ActionReturned}, actions(t, f, c1.ID))
	assert.Equal(t, []string{model.ActionSubmitted, model.ActionConflicted, model.ActionAutoRejected}, actions(t, f, c2.ID))
}

func TestApproveSinglePendingClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusUnclaimed)
	report := f.lostItem(t, f.ana, "electronics", "Library", day(9))

	c, err := f.svc.SubmitClaim(ctx, f.ana, found.ID, ClaimInput{Evidence: "cracked corner", LostItemID: &report.ID})
	require.NoError(t, err)

	_, err = f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusApproved})
	require.NoError(t, err)

	assert.Equal(t, model.FoundStatusReturned, f.foundStatus(t, found.ID))
	lostNow, err := store.GetLostItem(ctx, f.db, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LostStatusClosed, lostNow.Status)
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	c := f.claim(t, f.ana, found.ID)

	got, err := f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusRejected, Reason: "wrong colour"})
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusRejected, got.Status)
	assert.NotNil(t, got.DecidedAt)
	assert.Equal(t, model.FoundStatusStored, f.foundStatus(t, found.ID))

	_, err = f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusApproved})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.ClaimStatusRejected, f.claimStatus(t, c.ID))

	// The claimant may try again with better evidence.
	again := f.claim(t, f.ana, found.ID)
	assert.Equal(t, model.ClaimStatusPending, again.Status)
}

func TestDecisionUsesServiceClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)

	submitted := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return submitted }
	c := f.claim(t, f.ana, found.ID)

	decided := submitted.Add(90 * time.Minute)
	f.svc.now = func() time.Time { return decided }
	got, err := f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusRejected, Reason: "wrong model"})
	require.NoError(t, err)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, got.DecidedAt.Equal(decided), "decided_at %v", got.DecidedAt)

	entries, err := f.svc.ClaimLog(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].CreatedAt.Equal(submitted), "submitted at %v", entries[0].CreatedAt)
	assert.True(t, entries[1].CreatedAt.Equal(decided), "decided at %v", entries[1].CreatedAt)
}

func TestVerifyClaimErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyClaim(ctx, f.staff, 1, Decision{Status: model.ClaimStatusConflicted})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.VerifyClaim(ctx, f.staff, 999, Decision{Status: model.ClaimStatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)
}

// Concurrent decisions on one claim: exactly one wins, the other gets
// ErrConflict.
func TestConcurrentVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	c := f.claim(t, f.ana, found.ID)

	decisions := []string{model.ClaimStatusApproved, model.ClaimStatusRejected, model.ClaimStatusApproved, model.ClaimStatusRejected}
	errs := make([]error, len(decisions))

	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: d})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, wins)

	entries, err := f.svc.ClaimLog(ctx, c.ID)
	require.NoError(t, err)
	decided := 0
	for _, e := range entries {
		if e.Action == model.ActionApproved || e.Action == model.ActionRejected {
			decided++
		}
	}
	assert.Equal(t, 1, decided)
}

func TestAttachEvidenceImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	found := f.foundItem(t, model.FoundStatusStored)
	c := f.claim(t, f.ana, found.ID)
	require.Equal(t, model.PriorityLow, c.Priority)

	_, err := f.svc.AttachEvidenceImage(ctx, f.ben, c.ID, bytes.NewReader(testPNG()))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.AttachEvidenceImage(ctx, f.ana, c.ID, strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	img, err := f.svc.AttachEvidenceImage(ctx, f.ana, c.ID, bytes.NewReader(testPNG()))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.Mime)

	got, err := f.svc.GetClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ImageCount)
	assert.Equal(t, model.PriorityMedium, got.Priority)

	data, mime, err := f.svc.ClaimImage(ctx, c.ID, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEmpty(t, data)

	_, err = f.svc.VerifyClaim(ctx, f.staff, c.ID, Decision{Status: model.ClaimStatusRejected})
	require.NoError(t, err)
	_, err = f.svc.AttachEvidenceImage(ctx, f.ana, c.ID, bytes.NewReader(testPNG()))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListClaimsPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 5 {
		found := f.foundItem(t, model.FoundStatusStored)
		f.claim(t, f.ana, found.ID)
	}

	page, err := f.svc.ListClaims(ctx, store.ClaimFilter{Status: model.ClaimStatusPending}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PerPage)
	assert.Len(t, page.Items, 2)

	page, err = f.svc.ListClaims(ctx, store.ClaimFilter{ClaimantID: f.ben.ID}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	_, err = f.svc.ListClaims(ctx, store.ClaimFilter{Status: "bogus"}, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClaimLogMissingClaim(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ClaimLog(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := range 16 {
		for y := range 16 {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
