package invitation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coachlink/coachlink-go/internal/identity"
)

func TestCreate_IssuesPendingInvitation(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)

	if inv.Status != StatusPending {
		t.Errorf("status = %s, want pending", inv.Status)
	}
	if inv.Token == "" {
		t.Error("token is empty")
	}
	if !inv.ExpiresAt.Equal(t0.Add(14 * 24 * time.Hour)) {
		t.Errorf("expiresAt = %v, want sentAt+14d", inv.ExpiresAt)
	}
	if e.notifier.InvitationCount() != 1 {
		t.Errorf("invitation emails sent = %d, want 1", e.notifier.InvitationCount())
	}

	sent := e.notifier.Invitations[0]
	if sent.AthleteEmail != "athlete@example.com" {
		t.Errorf("email to %q", sent.AthleteEmail)
	}
	if sent.Coach.Name != "Casey Coach" || sent.Coach.Email != "coach@example.com" {
		t.Errorf("coach info = %+v", sent.Coach)
	}
	if sent.Token != inv.Token {
		t.Error("emailed token differs from stored token")
	}
}

func TestCreate_RejectsDuplicatePending(t *testing.T) {
	e := newEnv(t)
	e.invite(t)

	_, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "Athlete@Example.com"})
	if !errors.Is(err, ErrDuplicatePending) {
		t.Errorf("got %v, want ErrDuplicatePending", err)
	}
}

func TestCreate_AllowedAgainAfterCancel(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)
	if _, err := e.svc.Cancel(context.Background(), e.coachAccount.ID, inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "athlete@example.com"}); err != nil {
		t.Errorf("create after cancel: %v", err)
	}
}

func TestCreate_EmailFailureFlipsStatus(t *testing.T) {
	e := newEnv(t)
	e.notifier.FailInvitation = errors.New("smtp down")

	out, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "athlete@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.NotifyErr == nil {
		t.Error("NotifyErr is nil, want dispatch failure")
	}
	if out.Invitation.Status != StatusEmailFailed {
		t.Errorf("status = %s, want email_failed", out.Invitation.Status)
	}

	stored, _ := e.invites.GetByID(context.Background(), out.Invitation.ID)
	if stored.Status != StatusEmailFailed {
		t.Errorf("stored status = %s, want email_failed", stored.Status)
	}
}

func TestResend_RefreshesWindowAndKeepsToken(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)
	originalToken := inv.Token

	e.clock.Advance(10 * 24 * time.Hour)

	out, err := e.svc.Resend(context.Background(), e.coachAccount.ID, inv.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if out.Invitation.Status != StatusPending {
		t.Errorf("status = %s, want pending", out.Invitation.Status)
	}
	if !out.Invitation.ExpiresAt.Equal(e.clock.Now().Add(14 * 24 * time.Hour)) {
		t.Errorf("expiresAt = %v, want resendTime+14d", out.Invitation.ExpiresAt)
	}
	if out.Invitation.Token != originalToken {
		t.Error("token rotated on resend; bookmarked links would break")
	}
	if e.notifier.InvitationCount() != 2 {
		t.Errorf("emails = %d, want 2", e.notifier.InvitationCount())
	}
}

func TestResend_LegalFromDerivedExpired(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)

	e.clock.Advance(20 * 24 * time.Hour)

	out, err := e.svc.Resend(context.Background(), e.coachAccount.ID, inv.ID)
	if err != nil {
		t.Fatalf("resend after expiry: %v", err)
	}
	if got := out.Invitation.DerivedStatus(e.clock.Now()); got != StatusPending {
		t.Errorf("derived status = %s, want pending", got)
	}
}

func TestResend_RejectedFromCancelled(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)
	if _, err := e.svc.Cancel(context.Background(), e.coachAccount.ID, inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := e.svc.Resend(context.Background(), e.coachAccount.ID, inv.ID)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if want := "cannot resend invitation with status: cancelled"; ite.Error() != want {
		t.Errorf("message = %q, want %q", ite.Error(), want)
	}
}

func TestResend_EmailFailedRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.notifier.FailInvitation = errors.New("provider 500")

	out, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "athlete@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Invitation.Status != StatusEmailFailed {
		t.Fatalf("status after failed send = %s", out.Invitation.Status)
	}

	// Resend succeeds once the provider recovers.
	e.notifier.FailInvitation = nil
	e.clock.Advance(time.Hour)
	out, err = e.svc.Resend(context.Background(), e.coachAccount.ID, out.Invitation.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if out.Invitation.Status != StatusPending {
		t.Errorf("status = %s, want pending", out.Invitation.Status)
	}
	resendExpiry := out.Invitation.ExpiresAt

	// A second failure flips back to email_failed without touching the
	// expiry beyond the resend's own refresh.
	e.notifier.FailInvitation = errors.New("provider 500 again")
	e.clock.Advance(time.Hour)
	out, err = e.svc.Resend(context.Background(), e.coachAccount.ID, out.Invitation.ID)
	if err != nil {
		t.Fatalf("second resend: %v", err)
	}
	if out.Invitation.Status != StatusEmailFailed {
		t.Errorf("status = %s, want email_failed", out.Invitation.Status)
	}
	wantExpiry := resendExpiry.Add(time.Hour) // this resend's own refresh
	if !out.Invitation.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiresAt = %v, want %v", out.Invitation.ExpiresAt, wantExpiry)
	}
}

func TestResend_RejectedAfterReplacementPending(t *testing.T) {
	e := newEnv(t)
	e.notifier.FailInvitation = errors.New("smtp down")

	out, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "athlete@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Invitation.Status != StatusEmailFailed {
		t.Fatalf("status after failed send = %s", out.Invitation.Status)
	}
	stale := out.Invitation

	// The email_failed row freed the slot, so the coach issues a fresh one.
	e.notifier.FailInvitation = nil
	if _, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "athlete@example.com"}); err != nil {
		t.Fatalf("create replacement: %v", err)
	}

	// Resending the stale row must not yield a second pending invitation.
	if _, err := e.svc.Resend(context.Background(), e.coachAccount.ID, stale.ID); !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("resend after replacement: got %v, want ErrDuplicatePending", err)
	}

	pending, err := e.svc.List(context.Background(), e.coachAccount.ID,
		ListFilter{Status: StatusPending, Email: "athlete@example.com"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending invitations = %d, want 1", len(pending))
	}
}

func TestCancel_FromPendingAndEmailFailed(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)

	got, err := e.svc.Cancel(context.Background(), e.coachAccount.ID, inv.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// And again from email_failed.
	e.notifier.FailInvitation = errors.New("boom")
	out, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "second@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err = e.svc.Cancel(context.Background(), e.coachAccount.ID, out.Invitation.ID)
	if err != nil {
		t.Fatalf("cancel email_failed: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestCancel_RejectedOnceAccepted(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)

	if _, err := e.est.Accept(context.Background(), AcceptParams{
		Token: inv.Token, AthleteID: e.athleteProfile.ID, TermsVersion: "2026-01",
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err := e.svc.Cancel(context.Background(), e.coachAccount.ID, inv.ID)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if ite.Status != StatusAccepted {
		t.Errorf("rejection carries status %s, want accepted", ite.Status)
	}
}

func TestOwnershipMismatchReadsAsNotFound(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)

	otherCoach := identity.AccountID("some-other-coach")
	if _, err := e.svc.Cancel(context.Background(), otherCoach, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel by stranger: got %v, want ErrNotFound", err)
	}
	if _, err := e.svc.Resend(context.Background(), otherCoach, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("resend by stranger: got %v, want ErrNotFound", err)
	}
	if _, err := e.svc.Get(context.Background(), otherCoach, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get by stranger: got %v, want ErrNotFound", err)
	}
}

func TestList_FiltersByStatus(t *testing.T) {
	e := newEnv(t)
	inv := e.invite(t)
	if _, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{Email: "second@example.com"}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := e.svc.Cancel(context.Background(), e.coachAccount.ID, inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending, err := e.svc.List(context.Background(), e.coachAccount.ID, ListFilter{Status: StatusPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].Email != "second@example.com" {
		t.Errorf("pending filter returned %d rows", len(pending))
	}

	cancelled, err := e.svc.List(context.Background(), e.coachAccount.ID, ListFilter{Status: StatusCancelled})
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	if len(cancelled) != 1 {
		t.Errorf("cancelled filter returned %d rows", len(cancelled))
	}
}
