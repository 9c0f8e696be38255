package workflow

import (
	"errors"
	"fmt"

	"github.com/erazemk/najdeno/internal/store"
)

// Domain failures. Callers match them with errors.Is; the wrapped message
// carries the detail shown to the user.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrItemNotClaimable  = errors.New("item cannot be claimed")
	ErrItemNotEligible   = errors.New("item not eligible for matching")
	ErrConflict          = errors.New("conflicting update")
	ErrAlreadyReturned   = errors.New("item already returned")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
)

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// raced translates storage-level write races into ErrConflict.
func raced(err error, what string) error {
	if errors.Is(err, store.ErrStatusConflict) || store.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s was changed by someone else", ErrConflict, what)
	}
	return err
}

func fmtTransition(what, from, to, hint string) error {
	detail := what + " cannot move"
	if from != "" {
		detail += " from " + from
	}
	detail += " to " + to
	if hint != "" {
		detail += " (" + hint + ")"
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, detail)
}
