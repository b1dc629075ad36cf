// Package notify delivers invitation and acceptance emails. Delivery is
// best-effort everywhere: a failed send never rolls back a state transition
// that already committed.
package notify

import (
	"context"
	"sync"
	"time"
)

// CoachInfo is the coach display information embedded in emails.
type CoachInfo struct {
	Name  string
	Email string
}

// Invitation carries what an invitation email needs.
type Invitation struct {
	Coach        CoachInfo
	AthleteEmail string
	Token        string
	Message      string
	ExpiresAt    time.Time
}

// Acceptance carries what an acceptance notice to the coach needs.
type Acceptance struct {
	Coach       CoachInfo
	AthleteName string
	AthleteMail string
}

// Notifier is the outbound notification contract.
type Notifier interface {
	SendInvitation(ctx context.Context, inv Invitation) error
	SendAcceptanceNotice(ctx context.Context, acc Acceptance) error
}

// CaptureNotifier records sends and can be primed to fail. Test helper.
type CaptureNotifier struct {
	mu          sync.Mutex
	Invitations []Invitation
	Acceptances []Acceptance

	// FailInvitation / FailAcceptance, when non-nil, are returned by the
	// corresponding send.
	FailInvitation error
	FailAcceptance error
}

func (n *CaptureNotifier) SendInvitation(ctx context.Context, inv Invitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailInvitation != nil {
		return n.FailInvitation
	}
	n.Invitations = append(n.Invitations, inv)
	return nil
}

func (n *CaptureNotifier) SendAcceptanceNotice(ctx context.Context, acc Acceptance) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailAcceptance != nil {
		return n.FailAcceptance
	}
	n.Acceptances = append(n.Acceptances, acc)
	return nil
}

// InvitationCount returns how many invitation emails were captured.
func (n *CaptureNotifier) InvitationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Invitations)
}

// AcceptanceCount returns how many acceptance notices were captured.
func (n *CaptureNotifier) AcceptanceCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Acceptances)
}
