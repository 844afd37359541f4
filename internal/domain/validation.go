package domain

import "fmt"

// ValidationError marks a record that must not be persisted as-is. Manual
// block attempts surface these to the operator; automated heuristics treat
// them as bugs and log them.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ErrIPBlockRequiresExpiry rejects unbounded ip_address blocks.
var ErrIPBlockRequiresExpiry = &ValidationError{
	Field:  "expires_at",
	Reason: "ip_address blocks must carry an expiry",
}
