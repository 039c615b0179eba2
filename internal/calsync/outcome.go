package calsync

import (
	"errors"
	"fmt"
)

// Outcome reports how far a multi-step operation got. The store has no
// transactions, so a failure part-way leaves one side written.
type Outcome int

const (
	// FullySynced means every step succeeded (or nothing needed doing).
	FullySynced Outcome = iota
	// CalendarOnly means the calendar side was written but the source
	// entity was not.
	CalendarOnly
	// SourceOnly means the source entity was written but its calendar
	// event was not.
	SourceOnly
	// Failed means nothing was written.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case FullySynced:
		return "fully_synced"
	case CalendarOnly:
		return "calendar_only"
	case SourceOnly:
		return "source_only"
	default:
		return "failed"
	}
}

// MarshalText renders the outcome as its string form in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Partial reports whether exactly one side was written.
func (o Outcome) Partial() bool {
	return o == CalendarOnly || o == SourceOnly
}

// ValidationError is returned when input is rejected before touching the
// store.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a [ValidationError].
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrUnknownFitnessType is returned when completion cleanup is requested for
// a source that has no fitness session table.
var ErrUnknownFitnessType = errors.New("unknown fitness type")
