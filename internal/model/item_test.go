package model

import (
	"reflect"
	"testing"
)

func TestFoundTransitionAllowed(t *testing.T) {
	all := []string{FoundStatusUnclaimed, FoundStatusStored, FoundStatusClaimed, FoundStatusReturned}

	// Only the immediate successor is reachable; nothing skips or goes back.
	for i, from := range all {
		for j, to := range all {
			want := j == i+1
			if got := FoundTransitionAllowed(from, to); got != want {
				t.Errorf("FoundTransitionAllowed(%q, %q) = %v, want %v", from, to, got, want)
			}
		}
	}

	if FoundTransitionAllowed("bogus", FoundStatusStored) {
		t.Error("expected unknown status to be rejected")
	}
}

func TestFoundPath(t *testing.T) {
	got := FoundPath(FoundStatusUnclaimed, FoundStatusReturned)
	want := []string{FoundStatusStored, FoundStatusClaimed, FoundStatusReturned}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FoundPath = %v, want %v", got, want)
	}

	if p := FoundPath(FoundStatusClaimed, FoundStatusStored); p != nil {
		t.Errorf("expected nil path backwards, got %v", p)
	}
	if p := FoundPath(FoundStatusReturned, FoundStatusReturned); p != nil {
		t.Errorf("expected nil path to same status, got %v", p)
	}
}

func TestLostTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to string
		expected bool
	}{
		{LostStatusOpen, LostStatusFound, true},
		{LostStatusOpen, LostStatusClosed, true},
		{LostStatusFound, LostStatusClosed, true},
		{LostStatusFound, LostStatusOpen, false},
		{LostStatusClosed, LostStatusOpen, false},
		{LostStatusClosed, LostStatusFound, false},
	}

	for _, tt := range tests {
		if got := LostTransitionAllowed(tt.from, tt.to); got != tt.expected {
			t.Errorf("LostTransitionAllowed(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestClaimTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to string
		expected bool
	}{
		{ClaimStatusPending, ClaimStatusApproved, true},
		{ClaimStatusPending, ClaimStatusRejected, true},
		{ClaimStatusPending, ClaimStatusConflicted, true},
		{ClaimStatusConflicted, ClaimStatusApproved, true},
		{ClaimStatusConflicted, ClaimStatusRejected, true},
		{ClaimStatusConflicted, ClaimStatusPending, false},
		{ClaimStatusApproved, ClaimStatusRejected, false},
		{ClaimStatusRejected, ClaimStatusApproved, false},
	}

	for _, tt := range tests {
		if got := ClaimTransitionAllowed(tt.from, tt.to); got != tt.expected {
			t.Errorf("ClaimTransitionAllowed(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}
