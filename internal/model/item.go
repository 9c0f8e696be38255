package model

import "time"

// FoundItem is a recovered object handed in at a campus desk or reported by
// whoever picked it up.
type FoundItem struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	FoundLocation string    `json:"found_location"`
	FoundAt       time.Time `json:"found_at"`
	CampusID      int64     `json:"campus_id"`
	ReportedBy    *int64    `json:"reported_by,omitempty"`
	ImageMime     string    `json:"image_mime,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CampusName string `json:"campus_name,omitempty"`
}

// Found item statuses.
const (
	FoundStatusUnclaimed = "unclaimed"
	FoundStatusStored    = "stored"
	FoundStatusClaimed   = "claimed"
	FoundStatusReturned  = "returned"
)

// foundSequence is the only path a found item may take.
var foundSequence = []string{
	FoundStatusUnclaimed,
	FoundStatusStored,
	FoundStatusClaimed,
	FoundStatusReturned,
}

// LostItem is a student's report of something they are missing.
type LostItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	LostLocation string    `json:"lost_location"`
	LostAt       time.Time `json:"lost_at"`
	CampusID     int64     `json:"campus_id"`
	ReportedBy   *int64    `json:"reported_by,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Lost item statuses.
const (
	LostStatusOpen   = "open"
	LostStatusFound  = "found"
	LostStatusClosed = "closed"
)

var lostTransitions = map[string][]string{
	LostStatusOpen:  {LostStatusFound, LostStatusClosed},
	LostStatusFound: {LostStatusClosed},
}

// ValidFoundStatus reports whether s is a known found item status.
func ValidFoundStatus(s string) bool {
	return foundIndex(s) >= 0
}

// ValidLostStatus reports whether s is a known lost item status.
func ValidLostStatus(s string) bool {
	return s == LostStatusOpen || s == LostStatusFound || s == LostStatusClosed
}

// FoundTransitionAllowed reports whether a found item may move from one status
// to the next in a single step. Only the immediate successor is allowed.
func FoundTransitionAllowed(from, to string) bool {
	i, j := foundIndex(from), foundIndex(to)
	return i >= 0 && j == i+1
}

// FoundPath returns the statuses strictly after from, up to and including to.
// It returns nil when to is not ahead of from.
func FoundPath(from, to string) []string {
	i, j := foundIndex(from), foundIndex(to)
	if i < 0 || j <= i {
		return nil
	}
	path := make([]string, j-i)
	copy(path, foundSequence[i+1:j+1])
	return path
}

// LostTransitionAllowed reports whether a lost item may move from one status
// to another.
func LostTransitionAllowed(from, to string) bool {
	for _, s := range lostTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func foundIndex(s string) int {
	for i, v := range foundSequence {
		if v == s {
			return i
		}
	}
	return -1
}
