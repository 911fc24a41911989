package rating

import (
	"errors"
	"fmt"
)

// Kind classifies why a submission failed.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindWriteConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindWriteConflict:
		return "write_conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrInvalid        = errors.New("rating: invalid submission")
	ErrRecipeNotFound = errors.New("rating: recipe not found")
	ErrUpdateFailed   = errors.New("rating: aggregate update failed")
	ErrInternal       = errors.New("rating: internal error")
)

// User facing messages.
const (
	msgInvalidRating  = "Ogiltigt betyg. Betyget måste vara mellan 1-5."
	msgCommentMissing = "En kommentar krävs."
	msgNotFound       = "Receptet hittades inte."
	msgUpdateFailed   = "Misslyckades med att uppdatera receptbetyget."
	msgInternal       = "Ett serverfel uppstod."
	msgAccepted       = "Tack! Din recension har tagits emot."
)

// Error carries the failure kind, a message safe to show to the visitor and
// the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrInvalid
	case KindNotFound:
		return target == ErrRecipeNotFound
	case KindWriteConflict:
		return target == ErrUpdateFailed
	case KindInternal:
		return target == ErrInternal
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindInternal
}

func invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
