package invitation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepo_CreateRejectsSecondPending(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	first := pendingInvitation(t0)
	first.ID = ""
	first.Token = "tok-1"
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := pendingInvitation(t0)
	second.ID = ""
	second.Token = "tok-2"
	if err := repo.Create(ctx, second); !errors.Is(err, ErrDuplicatePending) {
		t.Errorf("second pending create: got %v, want ErrDuplicatePending", err)
	}

	// Same email for a different coach is fine.
	other := pendingInvitation(t0)
	other.ID = ""
	other.Token = "tok-3"
	other.CoachID = "coach-2"
	if err := repo.Create(ctx, other); err != nil {
		t.Errorf("other coach create: %v", err)
	}
}

func TestMemoryRepo_CreateNormalizesEmail(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	inv := pendingInvitation(t0)
	inv.ID = ""
	inv.Email = "  Athlete@Example.COM "
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindPendingByCoachAndEmail(ctx, "coach-1", "athlete@example.com")
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if got.Email != "athlete@example.com" {
		t.Errorf("stored email = %q", got.Email)
	}
}

func TestMemoryRepo_GetByToken(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	inv := pendingInvitation(t0)
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.ID != inv.ID {
		t.Errorf("got id %s, want %s", got.ID, inv.ID)
	}

	if _, err := repo.GetByToken(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByToken(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty token: got %v, want ErrNotFound", err)
	}
}

func TestMemoryRepo_UpdateConditionalOnStatus(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	inv := pendingInvitation(t0)
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	// First writer wins.
	winner, _ := repo.GetByID(ctx, inv.ID)
	winner.Status = StatusCancelled
	if err := repo.Update(ctx, winner, StatusPending); err != nil {
		t.Fatalf("winner update: %v", err)
	}

	// Second writer sees the conflict and learns the current status.
	loser, _ := repo.GetByID(ctx, inv.ID)
	loser.Status = StatusAccepted
	err := repo.Update(ctx, loser, StatusPending)
	var conflict *StatusConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("loser update: got %v, want StatusConflictError", err)
	}
	if conflict.Current != StatusCancelled {
		t.Errorf("conflict.Current = %s, want cancelled", conflict.Current)
	}
}

func TestMemoryRepo_UpdateMaintainsPendingIndex(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	inv := pendingInvitation(t0)
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	// pending -> email_failed frees the slot for lookup purposes
	inv.Status = StatusEmailFailed
	if err := repo.Update(ctx, inv, StatusPending); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.FindPendingByCoachAndEmail(ctx, inv.CoachID, inv.Email); !errors.Is(err, ErrNotFound) {
		t.Errorf("pending lookup after email_failed: got %v, want ErrNotFound", err)
	}

	// email_failed -> pending (resend) restores it
	inv.Status = StatusPending
	if err := repo.Update(ctx, inv, StatusEmailFailed); err != nil {
		t.Fatalf("update back to pending: %v", err)
	}
	if _, err := repo.FindPendingByCoachAndEmail(ctx, inv.CoachID, inv.Email); err != nil {
		t.Errorf("pending lookup after resend: %v", err)
	}
}

func TestMemoryRepo_ListByCoachNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		inv := pendingInvitation(t0.Add(time.Duration(i) * time.Hour))
		inv.ID = ""
		inv.Token = email
		inv.Email = email
		if err := repo.Create(ctx, inv); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	list, err := repo.ListByCoach(ctx, "coach-1", ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Email != "c@example.com" || list[2].Email != "a@example.com" {
		t.Errorf("not newest-first: %s, %s, %s", list[0].Email, list[1].Email, list[2].Email)
	}

	filtered, err := repo.ListByCoach(ctx, "coach-1", ListFilter{Email: "B@example.com"})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Email != "b@example.com" {
		t.Errorf("email filter returned %d rows", len(filtered))
	}

	paged, err := repo.ListByCoach(ctx, "coach-1", ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(paged) != 1 || paged[0].Email != "b@example.com" {
		t.Errorf("paging returned wrong row")
	}
}

func TestMemoryRepo_UpdateReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	inv := pendingInvitation(t0)
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	fetched, _ := repo.GetByID(ctx, inv.ID)
	fetched.Status = StatusCancelled // in-flight mutation, not persisted

	stored, _ := repo.GetByID(ctx, inv.ID)
	if stored.Status != StatusPending {
		t.Errorf("caller mutation leaked into store: %s", stored.Status)
	}
}
