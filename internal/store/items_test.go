package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

// newFoundItem inserts a found item on a fresh campus.
func newFoundItem(t *testing.T, database *sql.DB, title, status string) *model.FoundItem {
	t.Helper()
	ctx := context.Background()

	campus, err := GetCampusByCode(ctx, database, "MAIN")
	if err != nil {
		t.Fatalf("GetCampusByCode: %v", err)
	}
	if campus == nil {
		campus, err = CreateCampus(ctx, database, "Main Campus", "MAIN")
		if err != nil {
			t.Fatalf("CreateCampus: %v", err)
		}
	}

	item, err := CreateFoundItem(ctx, database, &model.FoundItem{
		Title:         title,
		Category:      "electronics",
		FoundLocation: "Library",
		FoundAt:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		CampusID:      campus.ID,
		Status:        status,
	})
	if err != nil {
		t.Fatalf("CreateFoundItem: %v", err)
	}
	return item
}

func TestCreateAndGetFoundItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newFoundItem(t, database, "Blue umbrella", model.FoundStatusUnclaimed)
	if item.Status != model.FoundStatusUnclaimed {
		t.Errorf("expected status 'unclaimed', got %q", item.Status)
	}
	if item.CampusName != "Main Campus" {
		t.Errorf("expected campus name joined, got %q", item.CampusName)
	}
	if !item.FoundAt.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("found_at did not round-trip: %v", item.FoundAt)
	}

	missing, err := GetFoundItem(ctx, database, 999)
	if err != nil {
		t.Fatalf("GetFoundItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestListFoundItemsByStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	newFoundItem(t, database, "Umbrella", model.FoundStatusUnclaimed)
	newFoundItem(t, database, "Wallet", model.FoundStatusStored)

	all, _ := ListFoundItems(ctx, database, ItemFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	stored, _ := ListFoundItems(ctx, database, ItemFilter{Status: model.FoundStatusStored})
	if len(stored) != 1 || stored[0].Title != "Wallet" {
		t.Errorf("expected only the wallet, got %v", stored)
	}
}

func TestSetFoundItemStatusCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newFoundItem(t, database, "Keys", model.FoundStatusUnclaimed)

	if err := SetFoundItemStatus(ctx, database, item.ID, model.FoundStatusUnclaimed, model.FoundStatusStored); err != nil {
		t.Fatalf("SetFoundItemStatus: %v", err)
	}

	// Same expected status again: the row moved on, so the write loses.
	err := SetFoundItemStatus(ctx, database, item.ID, model.FoundStatusUnclaimed, model.FoundStatusStored)
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}

func TestFoundItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newFoundItem(t, database, "Photo Item", model.FoundStatusStored)
	SetFoundItemImage(ctx, database, item.ID, []byte("fake image data"), "image/jpeg")

	data, mime, err := GetFoundItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetFoundItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}
}

func TestLostItemsAndOpenReports(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	campus, _ := CreateCampus(ctx, database, "North", "N")
	student, _ := CreateUser(ctx, database, "ana", "hash", model.RoleStudent, &campus.ID)

	lost, err := CreateLostItem(ctx, database, &model.LostItem{
		Title:        "Black phone",
		Category:     "electronics",
		LostLocation: "Cafeteria",
		LostAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CampusID:     campus.ID,
		ReportedBy:   &student.ID,
		Status:       model.LostStatusOpen,
	})
	if err != nil {
		t.Fatalf("CreateLostItem: %v", err)
	}

	has, err := HasOpenLostReport(ctx, database, student.ID, campus.ID, "electronics")
	if err != nil {
		t.Fatalf("HasOpenLostReport: %v", err)
	}
	if !has {
		t.Error("expected open report")
	}

	SetLostItemStatus(ctx, database, lost.ID, model.LostStatusOpen, model.LostStatusClosed)

	has, _ = HasOpenLostReport(ctx, database, student.ID, campus.ID, "electronics")
	if has {
		t.Error("expected no open report after closing")
	}

	mine, _ := ListLostItems(ctx, database, ItemFilter{}, student.ID)
	if len(mine) != 1 {
		t.Errorf("expected 1 report for student, got %d", len(mine))
	}
}
