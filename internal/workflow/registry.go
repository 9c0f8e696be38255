package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/cache"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/policy"
	"github.com/erazemk/najdeno/internal/store"
)

// maxClockSkew is how far in the future a found or lost date may lie.
const maxClockSkew = time.Hour

// FoundItemInput describes a newly reported found item.
type FoundItemInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"found_location"`
	FoundAt     time.Time `json:"found_at"`
	CampusID    int64     `json:"campus_id"`
	// Stored marks an item handed in directly at a desk.
	Stored bool `json:"stored"`
}

// LostItemInput describes a newly reported lost item.
type LostItemInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"lost_location"`
	LostAt      time.Time `json:"lost_at"`
	CampusID    int64     `json:"campus_id"`
}

type itemFields struct {
	title, category, location string
	at                        time.Time
	campusID                  int64
}

func (s *Service) checkItem(ctx context.Context, q store.Querier, f *itemFields) error {
	f.title = strings.TrimSpace(f.title)
	f.category = strings.ToLower(strings.TrimSpace(f.category))
	f.location = strings.TrimSpace(f.location)

	switch {
	case f.title == "":
		return invalid("title is required")
	case f.category == "":
		return invalid("category is required")
	case f.location == "":
		return invalid("location is required")
	case f.at.IsZero():
		return invalid("date is required")
	case f.at.After(s.now().Add(maxClockSkew)):
		return invalid("date is in the future")
	}

	campus, err := store.GetCampus(ctx, q, f.campusID)
	if err != nil {
		return err
	}
	if campus == nil || campus.DeletedAt != nil {
		return invalid("unknown campus %d", f.campusID)
	}
	return nil
}

// CreateFoundItem registers a found item as unclaimed, or as stored when it
// was handed in at a desk by staff.
func (s *Service) CreateFoundItem(ctx context.Context, actor Actor, in FoundItemInput) (*model.FoundItem, error) {
	f := itemFields{title: in.Title, category: in.Category, location: in.Location, at: in.FoundAt, campusID: in.CampusID}

	status := model.FoundStatusUnclaimed
	if in.Stored {
		if !policy.IsStaff(actor.Role) {
			return nil, ErrForbidden
		}
		status = model.FoundStatusStored
	}

	var item *model.FoundItem
	err := s.inTx(ctx, func(t *txn) error {
		if err := s.checkItem(ctx, t, &f); err != nil {
			return err
		}

		var err error
		item, err = store.CreateFoundItem(ctx, t, &model.FoundItem{
			Title:         f.title,
			Description:   strings.TrimSpace(in.Description),
			Category:      f.category,
			FoundLocation: f.location,
			FoundAt:       f.at.UTC(),
			CampusID:      f.campusID,
			ReportedBy:    actor.ref(),
			Status:        status,
		})
		if err != nil {
			return err
		}

		t.emit(notify.FoundItemCreated, notify.EntityFoundItem, item.ID, actor, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateLostItem records a lost item report as open.
func (s *Service) CreateLostItem(ctx context.Context, actor Actor, in LostItemInput) (*model.LostItem, error) {
	f := itemFields{title: in.Title, category: in.Category, location: in.Location, at: in.LostAt, campusID: in.CampusID}

	var item *model.LostItem
	err := s.inTx(ctx, func(t *txn) error {
		if err := s.checkItem(ctx, t, &f); err != nil {
			return err
		}

		var err error
		item, err = store.CreateLostItem(ctx, t, &model.LostItem{
			Title:        f.title,
			Description:  strings.TrimSpace(in.Description),
			Category:     f.category,
			LostLocation: f.location,
			LostAt:       f.at.UTC(),
			CampusID:     f.campusID,
			ReportedBy:   actor.ref(),
			Status:       model.LostStatusOpen,
		})
		if err != nil {
			return err
		}

		t.emit(notify.LostItemCreated, notify.EntityLostItem, item.ID, actor, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetFoundItem returns a found item.
func (s *Service) GetFoundItem(ctx context.Context, id int64) (*model.FoundItem, error) {
	item, err := cache.Load(s.Cache, foundKey(id), func() (model.FoundItem, error) {
		item, err := store.GetFoundItem(ctx, s.DB, id)
		if err != nil {
			return model.FoundItem{}, err
		}
		if item == nil {
			return model.FoundItem{}, notFound("found item", id)
		}
		return *item, nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetLostItem returns a lost item report.
func (s *Service) GetLostItem(ctx context.Context, id int64) (*model.LostItem, error) {
	item, err := cache.Load(s.Cache, lostKey(id), func() (model.LostItem, error) {
		item, err := store.GetLostItem(ctx, s.DB, id)
		if err != nil {
			return model.LostItem{}, err
		}
		if item == nil {
			return model.LostItem{}, notFound("lost item", id)
		}
		return *item, nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListFoundItems returns found items matching filter.
func (s *Service) ListFoundItems(ctx context.Context, filter store.ItemFilter) ([]model.FoundItem, error) {
	return store.ListFoundItems(ctx, s.DB, filter)
}

// ListLostItems returns lost reports matching filter. Students only see
// their own reports.
func (s *Service) ListLostItems(ctx context.Context, actor Actor, filter store.ItemFilter) ([]model.LostItem, error) {
	var reporter int64
	if !policy.IsStaff(actor.Role) {
		reporter = actor.ID
	}
	return store.ListLostItems(ctx, s.DB, filter, reporter)
}

// UpdateFoundStatus moves a found item one step along its lifecycle.
// Returning an item is only possible through FinalizeReturn.
func (s *Service) UpdateFoundStatus(ctx context.Context, actor Actor, id int64, status string) (*model.FoundItem, error) {
	if !model.ValidFoundStatus(status) {
		return nil, invalid("unknown status %q", status)
	}
	if status == model.FoundStatusReturned {
		return nil, fmtTransition("found item", "", status, "items are returned by approving a claim or match")
	}

	var item *model.FoundItem
	err := s.inTx(ctx, func(t *txn) error {
		var err error
		item, err = store.GetFoundItem(ctx, t, id)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("found item", id)
		}
		if !model.FoundTransitionAllowed(item.Status, status) {
			return fmtTransition("found item", item.Status, status, "")
		}

		if err := store.SetFoundItemStatus(ctx, t, id, item.Status, status); err != nil {
			return raced(err, "found item")
		}
		item.Status = status
		item.UpdatedAt = t.at

		t.invalidate(foundKey(id))
		t.emit(notify.FoundItemStatus, notify.EntityFoundItem, id, actor, item.ReportedBy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateLostStatus moves a lost report along its lifecycle. Students may
// only change their own reports.
func (s *Service) UpdateLostStatus(ctx context.Context, actor Actor, id int64, status string) (*model.LostItem, error) {
	if !model.ValidLostStatus(status) {
		return nil, invalid("unknown status %q", status)
	}

	var item *model.LostItem
	err := s.inTx(ctx, func(t *txn) error {
		var err error
		item, err = store.GetLostItem(ctx, t, id)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("lost item", id)
		}
		if !policy.IsStaff(actor.Role) && (item.ReportedBy == nil || *item.ReportedBy != actor.ID) {
			return ErrForbidden
		}
		if !model.LostTransitionAllowed(item.Status, status) {
			return fmtTransition("lost item", item.Status, status, "")
		}

		if err := store.SetLostItemStatus(ctx, t, id, item.Status, status); err != nil {
			return raced(err, "lost item")
		}
		item.Status = status
		item.UpdatedAt = t.at

		t.invalidate(lostKey(id))
		t.emit(notify.LostItemStatus, notify.EntityLostItem, id, actor, item.ReportedBy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SetFoundImage stores the photo of a found item, replacing any earlier one.
func (s *Service) SetFoundImage(ctx context.Context, actor Actor, id int64, r io.Reader) error {
	img, err := imaging.Process(r, imaging.ItemPhoto)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return s.inTx(ctx, func(t *txn) error {
		item, err := store.GetFoundItem(ctx, t, id)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound("found item", id)
		}
		if !policy.IsStaff(actor.Role) && (item.ReportedBy == nil || *item.ReportedBy != actor.ID) {
			return ErrForbidden
		}
		if err := store.SetFoundItemImage(ctx, t, id, img.Data, img.MIME); err != nil {
			return err
		}
		t.invalidate(foundKey(id))
		return nil
	})
}

// FoundImage returns the photo of a found item.
func (s *Service) FoundImage(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetFoundItemImage(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", notFound("image for found item", id)
	}
	return data, mime, nil
}
