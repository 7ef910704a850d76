package fixture

import (
	"errors"
	"fmt"
)

// SkipError signals that a test cannot run in the current environment. The harness
// marks such tests as skipped instead of failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

// Skip returns a SkipError with the given reason.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// AsSkip reports whether err is or wraps a SkipError.
func AsSkip(err error) (*SkipError, bool) {
	var skipErr *SkipError
	if errors.As(err, &skipErr) {
		return skipErr, true
	}
	return nil, false
}

// UnreachableReason is the skip reason when the application cannot be reached.
func UnreachableReason(baseURL string) string {
	return fmt.Sprintf("BASE_URL not reachable: %s. Start your local app (if using localhost) or set BASE_URL to a reachable staging/demo URL.", baseURL)
}

// MissingCredentialsReason is the skip reason when TEST_USER or TEST_PASS is empty.
const MissingCredentialsReason = "Missing TEST_USER/TEST_PASS in .env. Please set them before running UI tests."
