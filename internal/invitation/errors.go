package invitation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown ids and tokens, and ownership mismatches
	// masked as not-found so invitation existence is never leaked.
	ErrNotFound = errors.New("invitation not found")

	// ErrDuplicatePending rejects creating a second pending invitation for
	// the same (coach, email) pair.
	ErrDuplicatePending = errors.New("a pending invitation already exists for this athlete")
)

// InvalidTransitionError rejects a command that is not legal from the
// invitation's current derived status. The message carries the status so
// callers can render a precise reason.
type InvalidTransitionError struct {
	Action string
	Status Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s invitation with status: %s", e.Action, e.Status)
}

// StatusConflictError is returned by repositories when a conditional update
// finds the stored status no longer matches the expected one. Current is
// the status that won the race.
type StatusConflictError struct {
	Current Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("invitation status changed concurrently, now: %s", e.Current)
}

// BrokenReferenceError signals a data-integrity failure: an invitation
// references a coach that cannot be resolved. Surfaced distinctly from
// not-found so operators can detect orphaned invitations.
type BrokenReferenceError struct {
	InvitationID ID
	Detail       string
}

func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("invitation %s references missing data: %s", e.InvitationID, e.Detail)
}

// PreconditionError aborts an accept before any write, e.g. when the
// coach's profile is missing or consent was not recorded.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// EstablishmentError signals a failed write during the accept sequence.
// The caller should retry the accept as a whole; replay is idempotent once
// the relationship row exists.
type EstablishmentError struct {
	Step string
	Err  error
}

func (e *EstablishmentError) Error() string {
	return fmt.Sprintf("relationship establishment failed at %s: %v", e.Step, e.Err)
}

func (e *EstablishmentError) Unwrap() error { return e.Err }
