package adjustment

import "errors"

var (
	// ErrInsufficientData marks a window with too few samples to trust. Callers
	// degrade confidence instead of failing.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidStateTransition is returned when approve/reject/undo is called on
	// an override in the wrong state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrUndoWindowExpired is returned when undo is attempted after the window.
	ErrUndoWindowExpired = errors.New("undo window expired")
	// ErrDuplicateOverride is returned when a second pending override would be
	// created for the same user and date.
	ErrDuplicateOverride = errors.New("duplicate pending override")
)
