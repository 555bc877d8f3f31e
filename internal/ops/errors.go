package ops

import "errors"

var (
	// ErrInvalidOperation indicates an operation type outside the closed set.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotFound indicates the referenced conductor or package does not
	// exist or belongs to another tenant. The two cases are deliberately
	// indistinguishable so existence never leaks across tenants.
	ErrNotFound = errors.New("not found")
	// ErrNothingToUndo indicates no eligible ledger entry for the tenant.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNoPriorState indicates an undo target whose pre-mutation capture is
	// empty or missing. This signals a forward-handler defect and must never
	// silently no-op.
	ErrNoPriorState = errors.New("no prior state captured")
)

// ValidationError indicates missing or malformed request parameters.
// The message is safe to surface verbatim to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error { return &ValidationError{Msg: msg} }

// PolicyError indicates an operation that is structurally disallowed, as
// opposed to malformed: the request is well-formed but the engine refuses
// it (undoing a full-scope transfer). Reason explains why.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }
