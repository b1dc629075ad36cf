// Package memory implements the in-process persistence driver. It backs
// tests and the dev mode; nothing survives a restart.
package memory

import (
	"context"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/profile"
	"github.com/coachlink/coachlink-go/internal/relationship"
	"github.com/coachlink/coachlink-go/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// Driver bundles the in-memory repos behind the store.Driver contract.
type Driver struct {
	invitations   *invitation.MemoryRepo
	relationships *relationship.MemoryRepo
	coaches       *profile.MemoryCoachRepo
	athletes      *profile.MemoryAthleteRepo
	accounts      *identity.MemoryAccountRepo
	sessions      *identity.MemorySessionRepo
}

// NewDriver creates a memory driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	return &Driver{
		invitations:   invitation.NewMemoryRepo(),
		relationships: relationship.NewMemoryRepo(),
		coaches:       profile.NewMemoryCoachRepo(),
		athletes:      profile.NewMemoryAthleteRepo(),
		accounts:      identity.NewMemoryAccountRepo(),
		sessions:      identity.NewMemorySessionRepo(),
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string { return "memory" }

// Init is a no-op for the memory driver.
func (d *Driver) Init(ctx context.Context) error { return nil }

// Close is a no-op for the memory driver.
func (d *Driver) Close() error { return nil }

func (d *Driver) Invitations() invitation.Repo     { return d.invitations }
func (d *Driver) Relationships() relationship.Repo { return d.relationships }
func (d *Driver) Coaches() profile.CoachRepo       { return d.coaches }
func (d *Driver) Athletes() profile.AthleteRepo    { return d.athletes }
func (d *Driver) Accounts() identity.AccountRepo   { return d.accounts }
func (d *Driver) Sessions() identity.SessionRepo   { return d.sessions }

var _ store.Driver = (*Driver)(nil)
