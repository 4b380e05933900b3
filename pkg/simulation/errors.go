package simulation

import "errors"

// Per-tick outcomes. Agents handle all of these locally; none of them
// stops a run.
var (
	// ErrCapacityExceeded is returned when a standby queue with a hard
	// length cap is full.
	ErrCapacityExceeded = errors.New("queue capacity exceeded")

	// ErrPassUnavailable is returned when an attraction refuses to issue
	// or honor an expedited pass.
	ErrPassUnavailable = errors.New("expedited pass unavailable")

	// ErrOutOfWindow is returned when a pass is redeemed outside its
	// return window. The pass is discarded.
	ErrOutOfWindow = errors.New("pass redeemed outside its return window")

	// ErrAlreadyRan is returned by Run on a park that already ran its day.
	ErrAlreadyRan = errors.New("park already ran")
)
