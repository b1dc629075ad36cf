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
	"github.com/coachlink/coachlink-go/internal/relationship"
)

// AcceptParams are the inputs to an accept command. TermsVersion records
// the consent the athlete gave before the relationship is created.
type AcceptParams struct {
	Token        string
	AthleteID    profile.AthleteProfileID
	TermsVersion string
}

// AcceptResult reports the outcome of an accept. NotifyErr is a separate
// channel on purpose: the accept succeeded once the relationship and
// invitation writes committed, and a failed coach notification must never
// look like a failed accept.
type AcceptResult struct {
	Invitation   *Invitation
	Relationship *relationship.Relationship

	// NotifyErr is non-nil when the best-effort acceptance notice to the
	// coach failed. Soft outcome only.
	NotifyErr error

	// Replayed is true when this accept found the relationship already
	// established and returned it instead of writing anything.
	Replayed bool
}

// Establisher executes the athlete-side commands: the accept-time
// multi-write sequence and decline.
type Establisher struct {
	invites       Repo
	relationships relationship.Repo
	coaches       profile.CoachRepo
	athletes      profile.AthleteRepo
	accounts      identity.AccountRepo
	notifier      notify.Notifier
	clock         Clock
	logger        *slog.Logger
}

// NewEstablisher creates a relationship establisher.
func NewEstablisher(
	invites Repo,
	relationships relationship.Repo,
	coaches profile.CoachRepo,
	athletes profile.AthleteRepo,
	accounts identity.AccountRepo,
	notifier notify.Notifier,
	clock Clock,
	logger *slog.Logger,
) *Establisher {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Establisher{
		invites:       invites,
		relationships: relationships,
		coaches:       coaches,
		athletes:      athletes,
		accounts:      accounts,
		notifier:      notifier,
		clock:         clock,
		logger:        logutil.NoopIfNil(logger),
	}
}

// Accept runs the accept sequence: resolve the coach profile, create the
// relationship, flip the invitation to accepted, link the athlete's
// profile, then attempt the coach notification.
//
// Replaying an accept whose relationship already exists is a no-op success
// for the same athlete (the most likely retry is one triggered by a failed
// notification); any other caller is rejected against the derived status.
func (e *Establisher) Accept(ctx context.Context, p AcceptParams) (*AcceptResult, error) {
	inv, err := e.invites.GetByToken(ctx, strings.TrimSpace(p.Token))
	if err != nil {
		return nil, ErrNotFound
	}

	if p.AthleteID == "" {
		return nil, &PreconditionError{Reason: "athlete profile id is required"}
	}
	if strings.TrimSpace(p.TermsVersion) == "" {
		return nil, &PreconditionError{Reason: "terms consent is required"}
	}

	// Idempotent replay: a relationship for this invitation means the
	// accept already committed. Do not create a second one.
	if rel, err := e.relationships.GetByInvitationID(ctx, string(inv.ID)); err == nil {
		if rel.AthleteID == p.AthleteID {
			return &AcceptResult{Invitation: inv, Relationship: rel, Replayed: true}, nil
		}
		return nil, &InvalidTransitionError{Action: string(ActionAccept), Status: inv.DerivedStatus(e.clock.Now())}
	} else if !errors.Is(err, relationship.ErrNotFound) {
		return nil, err
	}

	now := e.clock.Now()
	if err := CheckTransition(ActionAccept, inv, now); err != nil {
		return nil, err
	}

	// Step 1: resolve the coach's profile id. The relationship references
	// the profile, never the account; a missing profile aborts before any
	// write.
	coach, err := e.coaches.GetByAccountID(ctx, inv.CoachID)
	if err != nil {
		if errors.Is(err, profile.ErrCoachNotFound) {
			return nil, &PreconditionError{Reason: "coach profile missing"}
		}
		return nil, err
	}

	athlete, err := e.athletes.GetByID(ctx, p.AthleteID)
	if err != nil {
		if errors.Is(err, profile.ErrAthleteNotFound) {
			return nil, &PreconditionError{Reason: "athlete profile missing"}
		}
		return nil, err
	}

	// Step 2: create the relationship.
	rel := &relationship.Relationship{
		CoachID:         coach.ID,
		AthleteID:       athlete.ID,
		InvitationID:    string(inv.ID),
		TermsAcceptedAt: now,
		TermsVersion:    strings.TrimSpace(p.TermsVersion),
		Status:          relationship.StatusActive,
	}
	if err := e.relationships.Create(ctx, rel); err != nil {
		if errors.Is(err, relationship.ErrAlreadyExists) {
			// Lost a race against a concurrent accept of the same token.
			if existing, gerr := e.relationships.GetByInvitationID(ctx, string(inv.ID)); gerr == nil && existing.AthleteID == p.AthleteID {
				return &AcceptResult{Invitation: inv, Relationship: existing, Replayed: true}, nil
			}
			return nil, &InvalidTransitionError{Action: string(ActionAccept), Status: StatusAccepted}
		}
		return nil, &EstablishmentError{Step: "relationship create", Err: err}
	}

	// Step 3: flip the invitation, conditional on it still being pending.
	// A concurrent cancel or accept wins here and this caller loses.
	inv.Status = StatusAccepted
	inv.AcceptedAt = &now
	inv.AthleteID = athlete.ID
	if err := e.invites.Update(ctx, inv, StatusPending); err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			return nil, &InvalidTransitionError{Action: string(ActionAccept), Status: conflict.Current}
		}
		return nil, &EstablishmentError{Step: "invitation update", Err: err}
	}

	// Step 4: annotate the athlete profile. Secondary to relationship
	// validity; failure is logged, never rolled back.
	if err := e.athletes.LinkCoach(ctx, athlete.ID, coach.ID); err != nil {
		e.logger.Error("failed to link coach on athlete profile",
			"athlete_id", athlete.ID, "coach_profile_id", coach.ID, "error", err)
	}

	result := &AcceptResult{Invitation: inv, Relationship: rel}

	// Step 5: best-effort notice to the coach. Outcome travels in a
	// separate field; it never undoes steps 1-4.
	if account, aerr := e.accounts.GetByID(ctx, inv.CoachID); aerr == nil {
		if nerr := e.notifier.SendAcceptanceNotice(ctx, notify.Acceptance{
			Coach:       notify.CoachInfo{Name: coach.DisplayName, Email: account.Email},
			AthleteName: athlete.DisplayName,
			AthleteMail: inv.Email,
		}); nerr != nil {
			e.logger.Warn("acceptance notice failed", "invitation_id", inv.ID, "error", nerr)
			result.NotifyErr = nerr
		}
	} else {
		e.logger.Warn("acceptance notice skipped, coach account unresolved", "invitation_id", inv.ID, "error", aerr)
		result.NotifyErr = aerr
	}

	e.logger.Info("relationship established",
		"invitation_id", inv.ID, "relationship_id", rel.ID,
		"coach_profile_id", coach.ID, "athlete_profile_id", athlete.ID)

	return result, nil
}

// Decline marks a pending invitation declined. Terminal: a declined
// invitation cannot be resent or accepted.
func (e *Establisher) Decline(ctx context.Context, token string) (*Invitation, error) {
	inv, err := e.invites.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, ErrNotFound
	}

	now := e.clock.Now()
	if err := CheckTransition(ActionDecline, inv, now); err != nil {
		return nil, err
	}

	inv.Status = StatusDeclined
	if err := e.invites.Update(ctx, inv, StatusPending); err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			return nil, &InvalidTransitionError{Action: string(ActionDecline), Status: conflict.Current}
		}
		return nil, err
	}

	e.logger.Info("invitation declined", "invitation_id", inv.ID)
	return inv, nil
}
