package workflow

import (
	"context"
	"log/slog"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// Reasons recorded on claims closed by the workflow rather than by staff.
const (
	reasonCompetingClaim  = "another claim was submitted for this item"
	reasonSiblingApproved = "another claim was approved"
	reasonReturnedByMatch = "item was returned to the owner of a matched lost report"
)

// conflictOnSubmit runs after a claim is inserted. If the item already holds
// an open claim, the new claim and every pending sibling become conflicted so
// staff must decide each one. No claim is favoured.
func (s *Service) conflictOnSubmit(ctx context.Context, t *txn, actor Actor, claim *model.Claim) error {
	siblings, err := store.OpenSiblingClaims(ctx, t, claim.FoundItemID, claim.ID)
	if err != nil {
		return err
	}
	if len(siblings) == 0 {
		return nil
	}

	toConflict := []model.Claim{*claim}
	for _, sib := range siblings {
		if sib.Status == model.ClaimStatusPending {
			toConflict = append(toConflict, sib)
		}
	}

	for _, c := range toConflict {
		if err := store.SetClaimStatus(ctx, t, c.ID, model.ClaimStatusPending, model.ClaimStatusConflicted, "", nil, t.at); err != nil {
			return raced(err, "claim")
		}
		err := store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt:  t.at,
			ClaimID:    c.ID,
			ActorID:    actor.ref(),
			Action:     model.ActionConflicted,
			FromStatus: model.ClaimStatusPending,
			ToStatus:   model.ClaimStatusConflicted,
			Reason:     reasonCompetingClaim,
		})
		if err != nil {
			return err
		}
		claimant := c.ClaimantID
		t.invalidate(claimKey(c.ID))
		t.emit(notify.ClaimConflicted, notify.EntityClaim, c.ID, actor, &claimant)
	}
	claim.Status = model.ClaimStatusConflicted

	slog.Info("claims conflicted", "found_item", claim.FoundItemID, "claims", len(toConflict))
	return nil
}

// rejectOpenClaims rejects every pending or conflicted claim on a found item
// except keep. Each rejection is logged as automatic.
func (s *Service) rejectOpenClaims(ctx context.Context, t *txn, actor Actor, foundID, keep int64, reason string) error {
	siblings, err := store.OpenSiblingClaims(ctx, t, foundID, keep)
	if err != nil {
		return err
	}

	for _, sib := range siblings {
		if err := store.SetClaimStatus(ctx, t, sib.ID, sib.Status, model.ClaimStatusRejected, reason, actor.ref(), t.at); err != nil {
			return raced(err, "claim")
		}
		err := store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt:  t.at,
			ClaimID:    sib.ID,
			ActorID:    actor.ref(),
			Action:     model.ActionAutoRejected,
			FromStatus: sib.Status,
			ToStatus:   model.ClaimStatusRejected,
			Reason:     reason,
		})
		if err != nil {
			return err
		}
		claimant := sib.ClaimantID
		t.invalidate(claimKey(sib.ID))
		t.emit(notify.ClaimRejected, notify.EntityClaim, sib.ID, actor, &claimant)
	}
	if len(siblings) > 0 {
		t.invalidate(claimsOfFoundKey(foundID))
	}
	return nil
}
