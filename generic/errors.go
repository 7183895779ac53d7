/*
errors.go - Centralized error types for the progression engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match kinds with errors.Is and render them with UserMessage.

ERROR KINDS:
  1. InvalidLevel     - current or target level outside the milestone table
  2. InvalidInput     - missing, unparsable or out-of-domain numeric input
  3. DegenerateYield  - bond per run is zero or negative after modifiers
  4. MissingSelection - nothing selected yet (idle state, not a failure)

PROPAGATION:
  Nothing here is fatal. The API and CLI recover every kind at the
  boundary and show UserMessage(err) instead of a result.

    if errors.Is(err, generic.ErrDegenerateYield) {
        ...
    }

SEE ALSO:
  - milestone.go: Returns LevelError
  - estimate.go: Returns InputError and DegenerateYieldError
  - api/handlers.go: Maps kinds to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidLevel is returned when a level is outside 0..MaxLevel.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrInvalidInput is returned when a required numeric input is absent,
	// unparsable or outside its allowed domain.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateYield is returned when the effective yield per run is <= 0.
	ErrDegenerateYield = errors.New("degenerate yield")

	// ErrMissingSelection marks the idle state where a selection is incomplete.
	// The planner reports it as StatusNotReady rather than returning it.
	ErrMissingSelection = errors.New("missing selection")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LevelError describes an out-of-range level.
type LevelError struct {
	Field    string // "current" or "target"
	Level    int
	MaxLevel int
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("invalid level: %s level %d outside 0..%d", e.Field, e.Level, e.MaxLevel)
}

func (e *LevelError) Unwrap() error {
	return ErrInvalidLevel
}

// InputError describes an invalid input field.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// DegenerateYieldError reports an activity whose modified yield cannot
// make progress.
type DegenerateYieldError struct {
	ActivityID string
	BaseYield  int
	BondPerRun int
}

func (e *DegenerateYieldError) Error() string {
	return fmt.Sprintf("degenerate yield: activity %q yields %d per run (base %d)",
		e.ActivityID, e.BondPerRun, e.BaseYield)
}

func (e *DegenerateYieldError) Unwrap() error {
	return ErrDegenerateYield
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLevel) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDegenerateYield)
}

// UserMessage turns an engine error into a plain message for display.
func UserMessage(err error) string {
	var (
		levelErr *LevelError
		inputErr *InputError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &levelErr):
		return fmt.Sprintf("The %s bond level must be between 0 and %d.", levelErr.Field, levelErr.MaxLevel)
	case errors.As(err, &inputErr):
		return fmt.Sprintf("Please enter a valid value for %s: %s.", inputErr.Field, inputErr.Reason)
	case errors.Is(err, ErrDegenerateYield):
		return "The selected quest gives no bond points per run."
	case errors.Is(err, ErrMissingSelection):
		return "Select a servant, a target bond level and a quest."
	default:
		return "Something went wrong while calculating."
	}
}
