// Package store provides the persistence driver abstraction. A driver owns
// one backend (memory, sqlite, postgres) and hands out the repository
// implementations the domain packages define.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/profile"
	"github.com/coachlink/coachlink-go/internal/relationship"
)

// Driver is a persistence backend. Implementations must be safe for
// concurrent use.
type Driver interface {
	// Init initializes the driver (open connections, run migrations).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite, postgres).
	Name() string

	Invitations() invitation.Repo
	Relationships() relationship.Repo
	Coaches() profile.CoachRepo
	Athletes() profile.AthleteRepo
	Accounts() identity.AccountRepo
	Sessions() identity.SessionRepo
}

// DriverConfig selects and configures a driver.
type DriverConfig struct {
	// Driver is the driver name: memory, sqlite, postgres.
	Driver string `json:"driver"`

	// DataDir is the directory for data files (sqlite db).
	DataDir string `json:"data_dir"`

	// Settings holds driver-specific keys, decoded by the driver itself.
	Settings map[string]any `json:"settings"`
}

// DecodeSettings decodes the raw settings map into the driver's own
// settings struct.
func (c *DriverConfig) DecodeSettings(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(c.Settings)
}

// DriverFactory creates a driver instance.
type DriverFactory func(cfg *DriverConfig) (Driver, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// Register registers a driver factory by name. Called from init() in
// driver packages.
func Register(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// New creates a driver instance based on the configuration.
func New(cfg *DriverConfig) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	return factory(cfg)
}

// AvailableDrivers returns the list of registered driver names.
func AvailableDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
