package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/erazemk/najdeno/internal/cache"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/store"
)

// MaxEvidenceLength caps the evidence text of a claim.
const MaxEvidenceLength = 4000

// Paging defaults for ListClaims.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ClaimInput is what a claimant submits.
type ClaimInput struct {
	Evidence string `json:"evidence"`
	// LostItemID optionally links the claimant's own lost report.
	LostItemID *int64 `json:"lost_item_id,omitempty"`
}

// Decision is a staff verdict on a claim.
type Decision struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// SubmitClaim files a claim on a found item. Returned items cannot be
// claimed. If the item already has open claims, all of them are conflicted.
func (s *Service) SubmitClaim(ctx context.Context, actor Actor, foundID int64, in ClaimInput) (*model.Claim, error) {
	evidence := strings.TrimSpace(in.Evidence)
	if evidence == "" {
		return nil, invalid("evidence is required")
	}
	if len(evidence) > MaxEvidenceLength {
		return nil, invalid("evidence is longer than %d characters", MaxEvidenceLength)
	}

	var claim *model.Claim
	err := s.inTx(ctx, func(t *txn) error {
		found, err := store.GetFoundItem(ctx, t, foundID)
		if err != nil {
			return err
		}
		if found == nil {
			return notFound("found item", foundID)
		}
		if found.Status == model.FoundStatusReturned {
			return fmt.Errorf("%w: found item %d was already returned", ErrItemNotClaimable, foundID)
		}

		if in.LostItemID != nil {
			report, err := store.GetLostItem(ctx, t, *in.LostItemID)
			if err != nil {
				return err
			}
			if report == nil || report.ReportedBy == nil || *report.ReportedBy != actor.ID {
				return invalid("lost item %d is not one of your reports", *in.LostItemID)
			}
		}

		mine, _, err := store.ListClaims(ctx, t, store.ClaimFilter{FoundItemID: foundID, ClaimantID: actor.ID}, -1, 0)
		if err != nil {
			return err
		}
		for _, c := range mine {
			if model.ClaimOpen(c.Status) {
				return fmt.Errorf("%w: you already have claim %d open on this item", ErrConflict, c.ID)
			}
		}

		priority, err := derivePriority(ctx, t, actor.ID, found, evidence, 0)
		if err != nil {
			return err
		}

		claim, err = store.CreateClaim(ctx, t, &model.Claim{
			FoundItemID: foundID,
			ClaimantID:  actor.ID,
			LostItemID:  in.LostItemID,
			Evidence:    evidence,
			Status:      model.ClaimStatusPending,
			Priority:    priority,
		})
		if err != nil {
			return err
		}
		err = store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt: t.at,
			ClaimID:   claim.ID,
			ActorID:   actor.ref(),
			Action:    model.ActionSubmitted,
			ToStatus:  model.ClaimStatusPending,
		})
		if err != nil {
			return err
		}

		t.invalidate(claimsOfFoundKey(foundID))
		t.emit(notify.ClaimSubmitted, notify.EntityClaim, claim.ID, actor, nil)

		return s.conflictOnSubmit(ctx, t, actor, claim)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// AttachEvidenceImage adds a photo to the actor's own open claim and
// recomputes its priority.
func (s *Service) AttachEvidenceImage(ctx context.Context, actor Actor, claimID int64, r io.Reader) (*model.EvidenceImage, error) {
	img, err := imaging.Process(r, imaging.Evidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var out *model.EvidenceImage
	err = s.inTx(ctx, func(t *txn) error {
		claim, err := store.GetClaim(ctx, t, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim", claimID)
		}
		if claim.ClaimantID != actor.ID {
			return fmt.Errorf("%w: only the claimant can add evidence", ErrForbidden)
		}
		if !model.ClaimOpen(claim.Status) {
			return fmt.Errorf("%w: claim %d is already %s", ErrInvalidTransition, claimID, claim.Status)
		}

		out, err = store.AddClaimImage(ctx, t, claimID, img.Data, img.MIME)
		if err != nil {
			return err
		}
		err = store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt:  t.at,
			ClaimID:    claimID,
			ActorID:    actor.ref(),
			Action:     model.ActionEvidence,
			FromStatus: claim.Status,
			ToStatus:   claim.Status,
		})
		if err != nil {
			return err
		}

		found, err := store.GetFoundItem(ctx, t, claim.FoundItemID)
		if err != nil {
			return err
		}
		priority, err := derivePriority(ctx, t, actor.ID, found, claim.Evidence, claim.ImageCount+1)
		if err != nil {
			return err
		}
		if priority != claim.Priority {
			if err := store.SetClaimPriority(ctx, t, claimID, priority, t.at); err != nil {
				return err
			}
		}

		t.invalidate(claimKey(claimID), claimsOfFoundKey(claim.FoundItemID))
		t.emit(notify.ClaimEvidence, notify.EntityClaim, claimID, actor, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyClaim records a staff decision. Approving a claim rejects every
// other open claim on the item and then returns the item. A claim that has
// already been decided cannot be decided again.
func (s *Service) VerifyClaim(ctx context.Context, actor Actor, claimID int64, d Decision) (*model.Claim, error) {
	if d.Status != model.ClaimStatusApproved && d.Status != model.ClaimStatusRejected {
		return nil, invalid("decision must be %q or %q", model.ClaimStatusApproved, model.ClaimStatusRejected)
	}
	reason := strings.TrimSpace(d.Reason)

	var claim *model.Claim
	err := s.inTx(ctx, func(t *txn) error {
		var err error
		claim, err = store.GetClaim(ctx, t, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFound("claim", claimID)
		}
		if !model.ClaimTransitionAllowed(claim.Status, d.Status) {
			return fmt.Errorf("%w: claim %d was already %s", ErrConflict, claimID, claim.Status)
		}

		from := claim.Status
		if err := store.SetClaimStatus(ctx, t, claimID, from, d.Status, reason, actor.ref(), t.at); err != nil {
			return raced(err, "claim")
		}
		action := model.ActionRejected
		event := notify.ClaimRejected
		if d.Status == model.ClaimStatusApproved {
			action = model.ActionApproved
			event = notify.ClaimApproved
		}
		err = store.AppendAction(ctx, t, &model.ActionLog{
			CreatedAt:  t.at,
			ClaimID:    claimID,
			ActorID:    actor.ref(),
			Action:     action,
			FromStatus: from,
			ToStatus:   d.Status,
			Reason:     reason,
		})
		if err != nil {
			return err
		}

		claimant := claim.ClaimantID
		t.invalidate(claimKey(claimID), claimsOfFoundKey(claim.FoundItemID))
		t.emit(event, notify.EntityClaim, claimID, actor, &claimant)

		if d.Status == model.ClaimStatusApproved {
			if err := s.rejectOpenClaims(ctx, t, actor, claim.FoundItemID, claimID, reasonSiblingApproved); err != nil {
				return err
			}
			found, err := store.GetFoundItem(ctx, t, claim.FoundItemID)
			if err != nil {
				return err
			}
			if err := s.finalize(ctx, t, actor, found); err != nil {
				return err
			}
		}

		claim, err = store.GetClaim(ctx, t, claimID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// GetClaim returns a claim.
func (s *Service) GetClaim(ctx context.Context, id int64) (*model.Claim, error) {
	claim, err := cache.Load(s.Cache, claimKey(id), func() (model.Claim, error) {
		c, err := store.GetClaim(ctx, s.DB, id)
		if err != nil {
			return model.Claim{}, err
		}
		if c == nil {
			return model.Claim{}, notFound("claim", id)
		}
		return *c, nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListClaims returns one page of claims, highest priority first. Page
// numbers start at 1.
func (s *Service) ListClaims(ctx context.Context, filter store.ClaimFilter, page, perPage int) (*Page[model.Claim], error) {
	if filter.Status != "" && !validClaimStatus(filter.Status) {
		return nil, invalid("unknown status %q", filter.Status)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)

	items, total, err := store.ListClaims(ctx, s.DB, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Claim{}
	}
	return &Page[model.Claim]{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// ClaimsForItem returns every claim on a found item.
func (s *Service) ClaimsForItem(ctx context.Context, foundID int64) ([]model.Claim, error) {
	return cache.Load(s.Cache, claimsOfFoundKey(foundID), func() ([]model.Claim, error) {
		claims, _, err := store.ListClaims(ctx, s.DB, store.ClaimFilter{FoundItemID: foundID}, -1, 0)
		return claims, err
	})
}

// ClaimLog returns a claim's audit trail, oldest first.
func (s *Service) ClaimLog(ctx context.Context, claimID int64) ([]model.ActionLog, error) {
	if _, err := s.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return store.ListActions(ctx, s.DB, claimID)
}

// ClaimImage returns an evidence photo of a claim.
func (s *Service) ClaimImage(ctx context.Context, claimID, imageID int64) ([]byte, string, error) {
	data, mime, err := store.GetClaimImage(ctx, s.DB, claimID, imageID)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", notFound("evidence image", imageID)
	}
	return data, mime, nil
}

func validClaimStatus(s string) bool {
	switch s {
	case model.ClaimStatusPending, model.ClaimStatusApproved, model.ClaimStatusRejected, model.ClaimStatusConflicted:
		return true
	}
	return false
}
