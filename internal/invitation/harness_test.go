package invitation

import (
	"context"
	"testing"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/notify"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
	"github.com/coachlink/coachlink-go/internal/profile"
	"github.com/coachlink/coachlink-go/internal/relationship"
)

// env wires the invitation core against in-memory repos with a fixed clock.
type env struct {
	invites  *MemoryRepo
	rels     *relationship.MemoryRepo
	coaches  *profile.MemoryCoachRepo
	athletes *profile.MemoryAthleteRepo
	accounts *identity.MemoryAccountRepo
	notifier *notify.CaptureNotifier
	clock    *FixedClock

	svc *Service
	est *Establisher
	val *Validator

	coachAccount   *identity.Account
	coachProfile   *profile.CoachProfile
	athleteAccount *identity.Account
	athleteProfile *profile.AthleteProfile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		invites:  NewMemoryRepo(),
		rels:     relationship.NewMemoryRepo(),
		coaches:  profile.NewMemoryCoachRepo(),
		athletes: profile.NewMemoryAthleteRepo(),
		accounts: identity.NewMemoryAccountRepo(),
		notifier: &notify.CaptureNotifier{},
		clock:    &FixedClock{T: t0},
	}

	e.coachAccount = &identity.Account{
		Email:       "coach@example.com",
		DisplayName: "Casey Coach",
		Role:        identity.RoleCoach,
	}
	if err := e.accounts.Create(ctx, e.coachAccount); err != nil {
		t.Fatalf("create coach account: %v", err)
	}
	e.coachProfile = &profile.CoachProfile{
		AccountID:   e.coachAccount.ID,
		DisplayName: "Casey Coach",
		Headline:    "Marathon specialist",
	}
	if err := e.coaches.Create(ctx, e.coachProfile); err != nil {
		t.Fatalf("create coach profile: %v", err)
	}

	e.athleteAccount = &identity.Account{
		Email:       "athlete@example.com",
		DisplayName: "Alex Athlete",
		Role:        identity.RoleAthlete,
	}
	if err := e.accounts.Create(ctx, e.athleteAccount); err != nil {
		t.Fatalf("create athlete account: %v", err)
	}
	e.athleteProfile = &profile.AthleteProfile{
		AccountID:   e.athleteAccount.ID,
		DisplayName: "Alex Athlete",
	}
	if err := e.athletes.Create(ctx, e.athleteProfile); err != nil {
		t.Fatalf("create athlete profile: %v", err)
	}

	log := logutil.Noop()
	e.svc = NewService(e.invites, e.coaches, e.accounts, e.notifier, e.clock, log)
	e.est = NewEstablisher(e.invites, e.rels, e.coaches, e.athletes, e.accounts, e.notifier, e.clock, log)
	e.val = NewValidator(e.invites, e.coaches, e.accounts, e.clock, log)
	return e
}

// invite creates a pending invitation to the fixture athlete and returns it.
func (e *env) invite(t *testing.T) *Invitation {
	t.Helper()
	out, err := e.svc.Create(context.Background(), e.coachAccount.ID, CreateParams{
		Email:   "athlete@example.com",
		Message: "Let's get to work",
	})
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	if out.NotifyErr != nil {
		t.Fatalf("unexpected notify error: %v", out.NotifyErr)
	}
	return out.Invitation
}
