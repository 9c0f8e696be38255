package workflow

import (
	"container/heap"
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode"

	"github.com/erazemk/najdeno/internal/cache"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// Score weights. A perfect candidate scores 100.
const (
	scoreCategory      = 50
	scoreLocationExact = 30
	scoreLocationWord  = 15
	scoreDateMax       = 20
	scoreDatePerDay    = 2
)

// locationStopWords never count as a shared location word.
var locationStopWords = map[string]bool{
	"the": true, "and": true, "near": true, "floor": true, "room": true, "building": true,
}

// Score rates how well a lost report describes a found item, from 0 to 100.
// Category counts most, then location, then how close the dates are.
func Score(found *model.FoundItem, lostItem *model.LostItem) int {
	score := 0
	if strings.EqualFold(strings.TrimSpace(found.Category), strings.TrimSpace(lostItem.Category)) {
		score += scoreCategory
	}

	fl := strings.ToLower(strings.TrimSpace(found.FoundLocation))
	ll := strings.ToLower(strings.TrimSpace(lostItem.LostLocation))
	switch {
	case fl != "" && fl == ll:
		score += scoreLocationExact
	case sharesWord(fl, ll):
		score += scoreLocationWord
	}

	// Something cannot be found before it was lost.
	if days := daysBetween(lostItem.LostAt, found.FoundAt); days >= 0 {
		score += max(0, scoreDateMax-scoreDatePerDay*days)
	}
	return score
}

func sharesWord(a, b string) bool {
	words := make(map[string]bool)
	for _, w := range locationWords(a) {
		words[w] = true
	}
	for _, w := range locationWords(b) {
		if words[w] {
			return true
		}
	}
	return false
}

func locationWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 3 && !locationStopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// daysBetween returns the number of calendar days from a to b in UTC.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Candidate is a lost report that may describe a found item.
type Candidate struct {
	LostItem model.LostItem `json:"lost_item"`
	Score    int            `json:"score"`
}

// Candidates yields match candidates for one found item, best first. Nothing
// is read until the first call to Next. The sequence is finite and cannot be
// restarted; once exhausted or closed it yields nothing.
type Candidates struct {
	ctx   context.Context
	db    store.Querier
	found model.FoundItem

	loaded bool
	closed bool
	ranked candidateHeap
	err    error
}

// ProposeCandidates starts a candidate search for a found item. Items that
// have already been returned are not eligible.
func (s *Service) ProposeCandidates(ctx context.Context, foundID int64) (*Candidates, error) {
	found, err := s.GetFoundItem(ctx, foundID)
	if err != nil {
		return nil, err
	}
	if found.Status == model.FoundStatusReturned {
		return nil, fmt.Errorf("%w: found item %d is already returned", ErrItemNotEligible, foundID)
	}
	return &Candidates{ctx: ctx, db: s.DB, found: *found}, nil
}

// Next returns the next best candidate. It returns false when the sequence is
// exhausted, closed or failed; check Err to tell them apart.
func (c *Candidates) Next() (Candidate, bool) {
	if c.closed {
		return Candidate{}, false
	}
	if !c.loaded {
		c.loaded = true
		if err := c.load(); err != nil {
			c.err = err
			c.Close()
			return Candidate{}, false
		}
	}
	if c.ranked.Len() == 0 {
		c.Close()
		return Candidate{}, false
	}
	return heap.Pop(&c.ranked).(Candidate), true
}

// All ranges over the remaining candidates.
func (c *Candidates) All() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for {
			cand, ok := c.Next()
			if !ok || !yield(cand) {
				return
			}
		}
	}
}

// Err returns the error that stopped the sequence, if any.
func (c *Candidates) Err() error { return c.err }

// Close ends the sequence and releases buffered candidates.
func (c *Candidates) Close() error {
	c.closed = true
	c.ranked = nil
	return nil
}

func (c *Candidates) load() error {
	existing, err := store.ListMatches(c.ctx, c.db, c.found.ID, 0, "")
	if err != nil {
		return err
	}
	matched := make(map[int64]bool, len(existing))
	for _, m := range existing {
		matched[m.LostItemID] = true
	}

	rows, err := store.OpenLostItemsRows(c.ctx, c.db, c.found.CampusID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		lostItem, err := store.ScanLostItem(rows)
		if err != nil {
			return fmt.Errorf("scanning lost item: %w", err)
		}
		if matched[lostItem.ID] || daysBetween(c.found.FoundAt, lostItem.LostAt) > 1 {
			continue
		}
		if score := Score(&c.found, lostItem); score > 0 {
			c.ranked = append(c.ranked, Candidate{LostItem: *lostItem, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading lost items: %w", err)
	}

	heap.Init(&c.ranked)
	return nil
}

// candidateHeap orders by score, then by oldest report.
type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].LostItem.ID < h[j].LostItem.ID
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// CreateMatch proposes a match between a found item and a lost report. Both
// must exist, the found item must not be returned and the report must not be
// closed.
func (s *Service) CreateMatch(ctx context.Context, actor Actor, foundID, lostID int64) (*model.Match, error) {
	var match *model.Match
	err := s.inTx(ctx, func(t *txn) error {
		found, err := store.GetFoundItem(ctx, t, foundID)
		if err != nil {
			return err
		}
		if found == nil {
			return notFound("found item", foundID)
		}
		lostItem, err := store.GetLostItem(ctx, t, lostID)
		if err != nil {
			return err
		}
		if lostItem == nil {
			return notFound("lost item", lostID)
		}

		if found.Status == model.FoundStatusReturned {
			return fmt.Errorf("%w: found item %d is already returned", ErrItemNotEligible, foundID)
		}
		if lostItem.Status == model.LostStatusClosed {
			return fmt.Errorf("%w: lost item %d is closed", ErrItemNotEligible, lostID)
		}

		existing, err := store.GetMatchByPair(ctx, t, foundID, lostID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: match %d already links these items", ErrConflict, existing.ID)
		}

		match, err = store.CreateMatch(ctx, t, foundID, lostID, Score(found, lostItem), actor.ref())
		if err != nil {
			return raced(err, "match")
		}

		t.invalidate(matchesOfFoundKey(foundID))
		t.emit(notify.MatchProposed, notify.EntityMatch, match.ID, actor, lostItem.ReportedBy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// ApproveMatch confirms a proposed match, marks the lost report found and
// returns the item to the reporter. Open claims on the item are rejected.
func (s *Service) ApproveMatch(ctx context.Context, actor Actor, matchID int64) (*model.Match, error) {
	var match *model.Match
	err := s.inTx(ctx, func(t *txn) error {
		var err error
		match, err = store.GetMatch(ctx, t, matchID)
		if err != nil {
			return err
		}
		if match == nil {
			return notFound("match", matchID)
		}
		if match.Status != model.MatchStatusProposed {
			return fmtTransition("match", match.Status, model.MatchStatusApproved, "")
		}

		found, err := store.GetFoundItem(ctx, t, match.FoundItemID)
		if err != nil {
			return err
		}
		if found.Status == model.FoundStatusReturned {
			return fmt.Errorf("%w: found item %d is already returned", ErrItemNotEligible, found.ID)
		}
		lostItem, err := store.GetLostItem(ctx, t, match.LostItemID)
		if err != nil {
			return err
		}
		if lostItem.Status == model.LostStatusClosed {
			return fmt.Errorf("%w: lost item %d is closed", ErrItemNotEligible, lostItem.ID)
		}

		if err := store.SetMatchStatus(ctx, t, matchID, model.MatchStatusProposed, model.MatchStatusApproved); err != nil {
			return raced(err, "match")
		}
		if lostItem.Status == model.LostStatusOpen {
			if err := store.SetLostItemStatus(ctx, t, lostItem.ID, model.LostStatusOpen, model.LostStatusFound); err != nil {
				return raced(err, "lost item")
			}
		}
		t.emit(notify.MatchApproved, notify.EntityMatch, matchID, actor, lostItem.ReportedBy)

		if err := s.rejectOpenClaims(ctx, t, actor, found.ID, 0, reasonReturnedByMatch); err != nil {
			return err
		}
		if err := s.finalize(ctx, t, actor, found); err != nil {
			return err
		}

		match, err = store.GetMatch(ctx, t, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// ListMatches returns matches for a found item, a lost report, or both.
func (s *Service) ListMatches(ctx context.Context, foundID, lostID int64) ([]model.Match, error) {
	if foundID > 0 && lostID == 0 {
		return cache.Load(s.Cache, matchesOfFoundKey(foundID), func() ([]model.Match, error) {
			return store.ListMatches(ctx, s.DB, foundID, 0, "")
		})
	}
	return store.ListMatches(ctx, s.DB, foundID, lostID, "")
}
