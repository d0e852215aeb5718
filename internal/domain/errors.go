package domain

import "errors"

// Sentinel errors for the classification core. Callers match them with
// errors.Is; messages wrapped around them carry the offending detail.
var (
	// ErrModelUnavailable means the model bundle is missing, corrupt, or
	// incompatible with the expected feature layout. The condition is
	// terminal for classification until an explicit reload.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInvalidObservation means an observation carries a missing or
	// non-finite feature. Per-request; shared state is never touched.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrAssignmentInconsistent means the model predicted a cluster the
	// risk assignment does not know. The model and assignment were built
	// from different states; the pair cannot be trusted.
	ErrAssignmentInconsistent = errors.New("risk assignment inconsistent")
)
