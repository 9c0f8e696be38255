package workflow

import (
	"context"
	"unicode/utf8"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// DetailedEvidenceLength is the evidence length, in characters, that earns a
// claim a priority point.
const DetailedEvidenceLength = 40

// PrioritySignals are the facts a claim's priority is derived from.
type PrioritySignals struct {
	EvidenceLength int
	Images         int
	// OpenLostReport is set when the claimant reported a lost item of the same
	// category on the same campus and that report is still open.
	OpenLostReport bool
}

// Priority maps signals to a priority. Each signal is worth one point:
// two or more points is high, one is medium, none is low. Priority orders the
// review queue only; it never decides a conflict.
func Priority(sig PrioritySignals) string {
	points := 0
	if sig.EvidenceLength >= DetailedEvidenceLength {
		points++
	}
	if sig.Images > 0 {
		points++
	}
	if sig.OpenLostReport {
		points++
	}

	switch {
	case points >= 2:
		return model.PriorityHigh
	case points == 1:
		return model.PriorityMedium
	}
	return model.PriorityLow
}

func derivePriority(ctx context.Context, q store.Querier, claimantID int64, found *model.FoundItem, evidence string, images int) (string, error) {
	hasReport, err := store.HasOpenLostReport(ctx, q, claimantID, found.CampusID, found.Category)
	if err != nil {
		return "", err
	}
	return Priority(PrioritySignals{
		EvidenceLength: utf8.RuneCountInString(evidence),
		Images:         images,
		OpenLostReport: hasReport,
	}), nil
}
