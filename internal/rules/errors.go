package rules

import "errors"

// Error kinds the rules engine raises, wrapped into a concrete error via
// fmt.Errorf("...: %w", ErrX) so callers can classify failures with
// errors.Is instead of string matching.
var (
	// ErrNotFound is returned when a table, player, or spread reference
	// doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorised is returned when an action is attempted by the
	// wrong player, or it isn't the caller's turn.
	ErrUnauthorised = errors.New("unauthorised")

	// ErrIllegalAction is returned when a guard is violated: discarding a
	// restricted card, dropping while hit-locked, spreading an invalid
	// meld, and so on. State is left unchanged.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInsufficientFunds is returned at join/ante when a wallet can't
	// cover the stake, or at settlement when a payout would leave a
	// wallet negative (the latter indicates a pre-validation bug).
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict is returned on lock contention; the caller should skip
	// its operation and let the winning actor complete it.
	ErrConflict = errors.New("conflict")

	// ErrInternal wraps store or wallet I/O failures. The current
	// operation is aborted and state preserved.
	ErrInternal = errors.New("internal error")
)
