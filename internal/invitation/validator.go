package invitation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
	"github.com/coachlink/coachlink-go/internal/profile"
)

// CoachSummary is the inviting coach's public display info, resolved so the
// invite landing page can show who is asking.
type CoachSummary struct {
	ProfileID   profile.CoachProfileID
	DisplayName string
	Headline    string
}

// Verdict is the read-only result of resolving a token. The account flags
// (HasAccount, ExistingRole) are informational, drive the sign-up versus
// sign-in choice, and never affect IsValid.
type Verdict struct {
	Invitation *Invitation

	IsValid     bool
	IsExpired   bool
	IsAccepted  bool
	IsCancelled bool

	Coach CoachSummary

	HasAccount   bool
	ExistingRole identity.Role
}

// Validator resolves bearer tokens into verdicts.
type Validator struct {
	invites  Repo
	coaches  profile.CoachRepo
	accounts identity.AccountRepo
	clock    Clock
	logger   *slog.Logger
}

// NewValidator creates a token validator.
func NewValidator(invites Repo, coaches profile.CoachRepo, accounts identity.AccountRepo, clock Clock, logger *slog.Logger) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Validator{
		invites:  invites,
		coaches:  coaches,
		accounts: accounts,
		clock:    clock,
		logger:   logutil.NoopIfNil(logger),
	}
}

// Validate resolves a raw token. Malformed and unknown tokens are both
// ErrNotFound; the response never distinguishes the two. An invitation
// whose coach cannot be resolved yields BrokenReferenceError so orphaned
// rows are detectable.
func (v *Validator) Validate(ctx context.Context, token string) (*Verdict, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}

	inv, err := v.invites.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrNotFound
	}

	coach, err := v.coaches.GetByAccountID(ctx, inv.CoachID)
	if err != nil {
		if errors.Is(err, profile.ErrCoachNotFound) {
			v.logger.Error("invitation references missing coach", "invitation_id", inv.ID, "coach_account_id", inv.CoachID)
			return nil, &BrokenReferenceError{InvitationID: inv.ID, Detail: "coach profile missing"}
		}
		return nil, err
	}

	now := v.clock.Now()
	verdict := &Verdict{
		Invitation:  inv,
		IsExpired:   inv.IsExpired(now),
		IsAccepted:  inv.Status == StatusAccepted || inv.AcceptedAt != nil,
		IsCancelled: inv.Status == StatusCancelled,
		Coach: CoachSummary{
			ProfileID:   coach.ID,
			DisplayName: coach.DisplayName,
			Headline:    coach.Headline,
		},
	}
	verdict.IsValid = !verdict.IsExpired && !verdict.IsAccepted && !verdict.IsCancelled &&
		inv.Status == StatusPending

	// Account existence is computed independently of validity: an expired
	// invitation for an existing athlete still reports HasAccount.
	if account, err := v.accounts.GetByEmail(ctx, inv.Email); err == nil {
		verdict.HasAccount = true
		verdict.ExistingRole = account.Role
	} else if !errors.Is(err, identity.ErrAccountNotFound) {
		return nil, err
	}

	return verdict, nil
}
