package model

import "time"

// Match links a found item to a lost report that may describe it.
type Match struct {
	ID          int64     `json:"id"`
	FoundItemID int64     `json:"found_item_id"`
	LostItemID  int64     `json:"lost_item_id"`
	Score       int       `json:"score"`
	Status      string    `json:"status"`
	ProposedBy  *int64    `json:"proposed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	FoundTitle string `json:"found_title,omitempty"`
	LostTitle  string `json:"lost_title,omitempty"`
}

// Match statuses.
const (
	MatchStatusProposed = "proposed"
	MatchStatusApproved = "approved"
	MatchStatusReturned = "returned"
)
