package workflow

import (
	"context"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// FinalizeReturn marks a found item returned. The item needs an approved
// claim or an approved match. Calling it again for a returned item changes
// nothing and reports ErrAlreadyReturned.
func (s *Service) FinalizeReturn(ctx context.Context, actor Actor, foundID int64) (*model.FoundItem, error) {
	var item *model.FoundItem
	err := s.inTx(ctx, func(t *txn) error {
		found, err := store.GetFoundItem(ctx, t, foundID)
		if err != nil {
			return err
		}
		if found == nil {
			return notFound("found item", foundID)
		}
		if err := s.finalize(ctx, t, actor, found); err != nil {
			return err
		}
		item, err = store.GetFoundItem(ctx, t, foundID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// finalize walks the found item through every remaining status up to
// returned, marks approved matches returned and closes the lost reports that
// were resolved by the return.
func (s *Service) finalize(ctx context.Context, t *txn, actor Actor, found *model.FoundItem) error {
	if found.Status == model.FoundStatusReturned {
		return fmt.Errorf("%w: found item %d", ErrAlreadyReturned, found.ID)
	}

	claim, err := store.GetApprovedClaim(ctx, t, found.ID)
	if err != nil {
		return err
	}
	matches, err := store.ListMatches(ctx, t, found.ID, 0, model.MatchStatusApproved)
	if err != nil {
		return err
	}
	if claim == nil && len(matches) == 0 {
		return fmtTransition("found item", found.Status, model.FoundStatusReturned, "no approved claim or match")
	}

	from := found.Status
	for _, next := range model.FoundPath(found.Status, model.FoundStatusReturned) {
		if err := store.SetFoundItemStatus(ctx, t, found.ID, from, next); err != nil {
			return raced(err, "found item")
		}
		from = next
	}
	found.Status = model.FoundStatusReturned

	var resolved []int64
	for _, m := range matches {
		if err := store.SetMatchStatus(ctx, t, m.ID, model.MatchStatusApproved, model.MatchStatusReturned); err != nil {
			return raced(err, "match")
		}
		resolved = append(resolved, m.LostItemID)
	}

	var owner *int64
	if claim != nil {
		err := store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt:  t.at,
			ClaimID:    claim.ID,
			ActorID:    actor.ref(),
			Action:     model.ActionReturned,
			FromStatus: claim.Status,
			ToStatus:   claim.Status,
		})
		if err != nil {
			return err
		}
		if claim.LostItemID != nil {
			resolved = append(resolved, *claim.LostItemID)
		}
		claimant := claim.ClaimantID
		owner = &claimant
		t.invalidate(claimKey(claim.ID))
	}

	for _, id := range resolved {
		if err := closeLostItem(ctx, t, actor, id); err != nil {
			return err
		}
	}

	t.invalidate(foundKey(found.ID), matchesOfFoundKey(found.ID), claimsOfFoundKey(found.ID))
	t.emit(notify.FoundItemReturned, notify.EntityFoundItem, found.ID, actor, owner)
	return nil
}

func closeLostItem(ctx context.Context, t *txn, actor Actor, id int64) error {
	item, err := store.GetLostItem(ctx, t, id)
	if err != nil {
		return err
	}
	if item == nil || item.Status == model.LostStatusClosed {
		return nil
	}
	if err := store.SetLostItemStatus(ctx, t, id, item.Status, model.LostStatusClosed); err != nil {
		return raced(err, "lost item")
	}
	t.invalidate(lostKey(id))
	t.emit(notify.LostItemStatus, notify.EntityLostItem, id, actor, item.ReportedBy)
	return nil
}
