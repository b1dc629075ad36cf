// Package invitation implements the invitation-to-relationship lifecycle:
// a coach issues a bearer-token invitation to an athlete email, the token
// resolves to a read-only verdict, and an explicit accept establishes the
// coach-athlete relationship.
package invitation

import (
	"time"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/profile"
)

// ID identifies an invitation.
type ID string

// Status is an invitation status. StatusExpired is never written by a
// background sweep; it is derived at read time from ExpiresAt.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAccepted    Status = "accepted"
	StatusDeclined    Status = "declined"
	StatusExpired     Status = "expired"
	StatusCancelled   Status = "cancelled"
	StatusEmailFailed Status = "email_failed"
)

// Invitation is a time-bounded, token-addressable offer from a coach to an
// athlete email. CoachID is the owning coach's account id; the relationship
// created at accept time references the coach's profile id instead.
type Invitation struct {
	ID      ID
	CoachID identity.AccountID
	Email   string
	Message string

	// Token is the opaque bearer secret. It is not rotated on resend, so
	// links already emailed keep working.
	Token string

	Status    Status
	SentAt    time.Time
	ExpiresAt time.Time

	AcceptedAt *time.Time
	AthleteID  profile.AthleteProfileID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DerivedStatus is the read-time status: a stored pending invitation past
// its expiry reads as expired. All other statuses pass through unchanged.
// A zero ExpiresAt is treated as not expired.
func (inv *Invitation) DerivedStatus(now time.Time) Status {
	if inv.Status == StatusPending && !inv.ExpiresAt.IsZero() && now.After(inv.ExpiresAt) {
		return StatusExpired
	}
	return inv.Status
}

// IsExpired reports whether the invitation is past its expiry, regardless
// of stored status.
func (inv *Invitation) IsExpired(now time.Time) bool {
	return !inv.ExpiresAt.IsZero() && now.After(inv.ExpiresAt)
}
