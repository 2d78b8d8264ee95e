package session

import "fmt"

// FailurePolicy decides what a failed Optimize does to the stored result.
type FailurePolicy string

const (
	// FailureKeep leaves result and readiness untouched.
	FailureKeep FailurePolicy = "keep"
	// FailureClear resets the session to empty.
	FailureClear FailurePolicy = "clear"
)

// ParseFailurePolicy accepts "keep", "clear" or "" (keep).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailureKeep:
		return FailureKeep, nil
	case FailureClear:
		return FailureClear, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}
