package store_test

import (
	"context"
	"slices"
	"testing"

	"github.com/coachlink/coachlink-go/internal/store"
	_ "github.com/coachlink/coachlink-go/internal/store/memory"
)

func TestRegistry_UnknownDriver(t *testing.T) {
	_, err := store.New(&store.DriverConfig{Driver: "no-such-driver"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRegistry_MemoryDriver(t *testing.T) {
	driver, err := store.New(&store.DriverConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if driver.Name() != "memory" {
		t.Errorf("name = %s", driver.Name())
	}
	if err := driver.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	if driver.Invitations() == nil || driver.Relationships() == nil ||
		driver.Coaches() == nil || driver.Athletes() == nil ||
		driver.Accounts() == nil || driver.Sessions() == nil {
		t.Error("driver returned a nil repo")
	}
}

func TestRegistry_AvailableDrivers(t *testing.T) {
	if !slices.Contains(store.AvailableDrivers(), "memory") {
		t.Errorf("memory driver not registered: %v", store.AvailableDrivers())
	}
}
