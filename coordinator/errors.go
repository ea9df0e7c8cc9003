package coordinator

import (
	"errors"
	"fmt"
)

// Rejection taxonomy. Every rejected operation wraps exactly one of these
// sentinels so callers (and the HTTP layer) can classify failures with
// errors.Is. Rejections never mutate state, so retrying with corrected
// inputs behaves as if attempted fresh.
var (
	// ErrValidation marks out-of-range or malformed inputs.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized marks callers without standing: non-authority,
	// non-manager, or inactive region.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict marks operations that lost an optimistic check: duplicate
	// request, period already active, reveal already outstanding,
	// already-claimed refund.
	ErrConflict = errors.New("state conflict")

	// ErrNotFound marks references to unknown regions, periods, requests
	// or correlation ids.
	ErrNotFound = errors.New("not found")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotAuthorized, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
