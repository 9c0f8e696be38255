package model

import "time"

// Claim is a claimant's request to take custody of a found item.
type Claim struct {
	ID             int64      `json:"id"`
	FoundItemID    int64      `json:"found_item_id"`
	ClaimantID     int64      `json:"claimant_id"`
	LostItemID     *int64     `json:"lost_item_id,omitempty"`
	Evidence       string     `json:"evidence"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DecisionReason string     `json:"decision_reason,omitempty"`
	DecidedBy      *int64     `json:"decided_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`

	// Joined fields (not always populated).
	FoundTitle   string `json:"found_title,omitempty"`
	ClaimantName string `json:"claimant_name,omitempty"`
	ImageCount   int    `json:"image_count"`
}

// Claim statuses.
const (
	ClaimStatusPending    = "pending"
	ClaimStatusApproved   = "approved"
	ClaimStatusRejected   = "rejected"
	ClaimStatusConflicted = "conflicted"
)

// Claim priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ClaimOpen reports whether a claim still awaits a staff decision.
func ClaimOpen(status string) bool {
	return status == ClaimStatusPending || status == ClaimStatusConflicted
}

// ClaimTransitionAllowed reports whether a claim may move between statuses.
func ClaimTransitionAllowed(from, to string) bool {
	switch from {
	case ClaimStatusPending:
		return to == ClaimStatusApproved || to == ClaimStatusRejected || to == ClaimStatusConflicted
	case ClaimStatusConflicted:
		return to == ClaimStatusApproved || to == ClaimStatusRejected
	}
	return false
}

// EvidenceImage is a photo attached to a claim.
type EvidenceImage struct {
	ID        int64     `json:"id"`
	ClaimID   int64     `json:"claim_id"`
	Mime      string    `json:"mime"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionLog is an immutable audit entry for a claim.
type ActionLog struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Claim log actions.
const (
	ActionSubmitted    = "submitted"
	ActionConflicted   = "conflicted"
	ActionApproved     = "approved"
	ActionRejected     = "rejected"
	ActionAutoRejected = "auto_rejected"
	ActionEvidence     = "evidence_added"
	ActionReturned     = "returned"
)
