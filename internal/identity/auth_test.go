package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	auth := NewPasswordAuthFast()

	hash, err := auth.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash not PHC formatted: %s", hash)
	}

	if err := auth.VerifyPassword(hash, "hunter2hunter2"); err != nil {
		t.Errorf("verify correct password: %v", err)
	}
	if err := auth.VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("verify wrong password: got %v, want ErrInvalidPassword", err)
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	auth := NewPasswordAuthFast()

	for _, hash := range []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=16384,t=1,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
	} {
		if err := auth.VerifyPassword(hash, "password"); !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("VerifyPassword(%q) = %v, want ErrInvalidPassword", hash, err)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := NewPasswordAuthFast()
	repo := NewMemoryAccountRepo()

	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &Account{
		Email:        "Coach@Example.com",
		Role:         RoleCoach,
		PasswordHash: hash,
	}); err != nil {
		t.Fatal(err)
	}

	// Lookup is case-insensitive through normalization.
	account, err := auth.Authenticate(ctx, repo, "coach@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if account.Role != RoleCoach {
		t.Errorf("role = %s", account.Role)
	}

	if _, err := auth.Authenticate(ctx, repo, "coach@example.com", "nope"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := auth.Authenticate(ctx, repo, "unknown@example.com", "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestBearerIssueAndVerify(t *testing.T) {
	verifier := NewBearerVerifier("shared-secret")
	account := &Account{ID: "acct-1", Email: "coach@example.com", Role: RoleCoach}

	token, err := verifier.Issue(account, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "acct-1" || claims.Role != RoleCoach {
		t.Errorf("claims = %+v", claims)
	}
}

func TestBearerVerify_Rejections(t *testing.T) {
	verifier := NewBearerVerifier("shared-secret")
	account := &Account{ID: "acct-1", Role: RoleCoach}

	// Wrong secret
	other := NewBearerVerifier("different-secret")
	token, err := other.Issue(account, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidBearer) {
		t.Errorf("wrong secret: got %v", err)
	}

	// Expired token
	expired, err := verifier.Issue(account, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(expired); !errors.Is(err, ErrInvalidBearer) {
		t.Errorf("expired token: got %v", err)
	}

	// Garbage
	if _, err := verifier.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidBearer) {
		t.Errorf("garbage token: got %v", err)
	}
}

func TestMemoryAccountRepoIsolatesStoredState(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()

	account := &Account{Email: "coach@example.com", DisplayName: "Dana", Role: RoleCoach}
	if err := repo.Create(ctx, account); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's struct after Create must not leak into the repo.
	account.DisplayName = "mangled"
	got, err := repo.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Dana" {
		t.Errorf("stored DisplayName = %q, want Dana", got.DisplayName)
	}

	// Mutating a read result must not either.
	got.Role = RoleAthlete
	again, err := repo.GetByEmail(ctx, "coach@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.Role != RoleCoach {
		t.Errorf("stored Role = %q, want coach", again.Role)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepo()

	session, err := repo.Create(ctx, "acct-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty session token")
	}
	if session.Expired(time.Now()) {
		t.Error("fresh session reads as expired")
	}
	if !session.Expired(time.Now().Add(2 * time.Hour)) {
		t.Error("session past TTL reads as valid")
	}

	got, err := repo.GetByToken(ctx, session.Token)
	if err != nil || got.AccountID != "acct-1" {
		t.Fatalf("GetByToken: %v, %+v", err, got)
	}

	if err := repo.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByToken(ctx, session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session: got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Coach@Example.COM", "coach@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
