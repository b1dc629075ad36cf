package invitation

import "time"

// InviteTTL is the validity window of an invitation, measured from the most
// recent send or resend.
const InviteTTL = 14 * 24 * time.Hour

// Clock supplies the current time. Expiry is always computed against a
// clock read at the moment of the check, never against a cached flag, so
// tests inject a fixed clock here.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a preset time. Test helper.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the fixed clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// ExpiresAfter computes the expiry for a send happening at sentAt.
func ExpiresAfter(sentAt time.Time) time.Time {
	return sentAt.Add(InviteTTL)
}
