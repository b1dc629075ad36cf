package invitation

import "time"

// Action is a caller-initiated command against an invitation.
type Action string

const (
	ActionResend  Action = "resend"
	ActionCancel  Action = "cancel"
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

// allowed maps each action to the derived statuses it is legal from.
// Creation is not listed; it starts from no invitation at all and is
// guarded by the duplicate-pending check instead.
var allowed = map[Action]map[Status]bool{
	ActionResend:  {StatusPending: true, StatusExpired: true, StatusEmailFailed: true},
	ActionCancel:  {StatusPending: true, StatusEmailFailed: true},
	ActionAccept:  {StatusPending: true},
	ActionDecline: {StatusPending: true},
}

// CheckTransition reports whether action is legal from the invitation's
// derived status at now. An illegal transition yields an
// InvalidTransitionError carrying the derived status, so a cancel of an
// invitation that expired yesterday is rejected as "expired", not "pending".
func CheckTransition(action Action, inv *Invitation, now time.Time) error {
	status := inv.DerivedStatus(now)
	if !allowed[action][status] {
		return &InvalidTransitionError{Action: string(action), Status: status}
	}
	return nil
}
