package invitation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/notify"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
	"github.com/coachlink/coachlink-go/internal/profile"
)

// CreateParams are the inputs to a create command.
type CreateParams struct {
	Email   string
	Message string
}

// SendOutcome is the result of a command that dispatches email (create,
// resend). NotifyErr reports the dispatch outcome separately from the core
// transition: when dispatch fails the invitation comes back with status
// email_failed and NotifyErr set, but the command itself succeeded.
type SendOutcome struct {
	Invitation *Invitation
	NotifyErr  error
}

// Service executes the coach-side commands. Every command verifies the
// acting coach owns the invitation before mutating or even revealing it;
// a mismatch reads as not-found so other coaches' invitations stay
// invisible.
type Service struct {
	invites  Repo
	coaches  profile.CoachRepo
	accounts identity.AccountRepo
	notifier notify.Notifier
	newToken TokenGenerator
	clock    Clock
	logger   *slog.Logger
}

// NewService creates the coach-side invitation service.
func NewService(
	invites Repo,
	coaches profile.CoachRepo,
	accounts identity.AccountRepo,
	notifier notify.Notifier,
	clock Clock,
	logger *slog.Logger,
) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		invites:  invites,
		coaches:  coaches,
		accounts: accounts,
		notifier: notifier,
		newToken: NewToken,
		clock:    clock,
		logger:   logutil.NoopIfNil(logger),
	}
}

// Create issues a new invitation and dispatches the invitation email.
// At most one pending invitation may exist per (coach, email); both the
// advisory pre-check here and the store's uniqueness constraint report
// ErrDuplicatePending.
func (s *Service) Create(ctx context.Context, coachID identity.AccountID, p CreateParams) (*SendOutcome, error) {
	email := identity.NormalizeEmail(p.Email)
	if email == "" {
		return nil, &PreconditionError{Reason: "athlete email is required"}
	}

	if _, err := s.invites.FindPendingByCoachAndEmail(ctx, coachID, email); err == nil {
		return nil, ErrDuplicatePending
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv := &Invitation{
		CoachID:   coachID,
		Email:     email,
		Message:   strings.TrimSpace(p.Message),
		Token:     token,
		Status:    StatusPending,
		SentAt:    now,
		ExpiresAt: ExpiresAfter(now),
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invitation created", "invitation_id", inv.ID, "coach_id", coachID)
	return s.dispatch(ctx, inv), nil
}

// Resend refreshes the send window and dispatches the email again. Legal
// from pending, expired, and email_failed. The token is not rotated, so
// links from earlier emails keep working. When the coach already issued a
// replacement pending invitation for the same email, the resend is
// rejected with ErrDuplicatePending rather than re-occupying the slot.
func (s *Service) Resend(ctx context.Context, coachID identity.AccountID, id ID) (*SendOutcome, error) {
	inv, err := s.getOwned(ctx, coachID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := CheckTransition(ActionResend, inv, now); err != nil {
		return nil, err
	}

	expect := inv.Status
	inv.Status = StatusPending
	inv.SentAt = now
	inv.ExpiresAt = ExpiresAfter(now)
	if err := s.invites.Update(ctx, inv, expect); err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			return nil, &InvalidTransitionError{Action: string(ActionResend), Status: conflict.Current}
		}
		return nil, err
	}

	s.logger.Info("invitation resent", "invitation_id", inv.ID, "expires_at", inv.ExpiresAt)
	return s.dispatch(ctx, inv), nil
}

// Cancel withdraws an invitation. Legal from pending and email_failed
// only; an invitation that already expired is rejected as expired.
func (s *Service) Cancel(ctx context.Context, coachID identity.AccountID, id ID) (*Invitation, error) {
	inv, err := s.getOwned(ctx, coachID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := CheckTransition(ActionCancel, inv, now); err != nil {
		return nil, err
	}

	expect := inv.Status
	inv.Status = StatusCancelled
	if err := s.invites.Update(ctx, inv, expect); err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			return nil, &InvalidTransitionError{Action: string(ActionCancel), Status: conflict.Current}
		}
		return nil, err
	}

	s.logger.Info("invitation cancelled", "invitation_id", inv.ID)
	return inv, nil
}

// List returns the coach's invitations, newest first.
func (s *Service) List(ctx context.Context, coachID identity.AccountID, f ListFilter) ([]*Invitation, error) {
	return s.invites.ListByCoach(ctx, coachID, f)
}

// Get returns a single owned invitation.
func (s *Service) Get(ctx context.Context, coachID identity.AccountID, id ID) (*Invitation, error) {
	return s.getOwned(ctx, coachID, id)
}

// getOwned fetches an invitation and masks ownership mismatches as
// not-found.
func (s *Service) getOwned(ctx context.Context, coachID identity.AccountID, id ID) (*Invitation, error) {
	inv, err := s.invites.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if inv.CoachID != coachID {
		return nil, ErrNotFound
	}
	return inv, nil
}

// dispatch sends the invitation email and, on failure, flips the
// invitation to email_failed. The flip is conditional on the invitation
// still being pending so a slow failure never clobbers a cancel or accept
// that landed meanwhile.
func (s *Service) dispatch(ctx context.Context, inv *Invitation) *SendOutcome {
	outcome := &SendOutcome{Invitation: inv}

	coachInfo := notify.CoachInfo{}
	if coach, err := s.coaches.GetByAccountID(ctx, inv.CoachID); err == nil {
		coachInfo.Name = coach.DisplayName
	}
	if account, err := s.accounts.GetByID(ctx, inv.CoachID); err == nil {
		coachInfo.Email = account.Email
		if coachInfo.Name == "" {
			coachInfo.Name = account.DisplayName
		}
	}

	err := s.notifier.SendInvitation(ctx, notify.Invitation{
		Coach:        coachInfo,
		AthleteEmail: inv.Email,
		Token:        inv.Token,
		Message:      inv.Message,
		ExpiresAt:    inv.ExpiresAt,
	})
	if err == nil {
		return outcome
	}

	s.logger.Warn("invitation email failed", "invitation_id", inv.ID, "error", err)
	outcome.NotifyErr = err

	inv.Status = StatusEmailFailed
	if uerr := s.invites.Update(ctx, inv, StatusPending); uerr != nil {
		// Cancelled or accepted in the meantime; leave it be.
		s.logger.Warn("skipped email_failed flip", "invitation_id", inv.ID, "error", uerr)
		if fresh, gerr := s.invites.GetByID(ctx, inv.ID); gerr == nil {
			outcome.Invitation = fresh
		}
	}
	return outcome
}
