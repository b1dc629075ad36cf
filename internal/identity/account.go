// Package identity holds accounts and the caller-identity contract.
// It never issues credentials to end users; the surrounding platform does
// that. What lives here is enough to answer "who is calling" for the
// invitation core: account records, password verification, opaque sessions,
// and bearer-token verification.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AccountID identifies an account (a login identity). It is distinct from
// profile identifiers on purpose; see the profile package.
type AccountID string

// Role is the account role within the marketplace.
type Role string

const (
	RoleCoach   Role = "coach"
	RoleAthlete Role = "athlete"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmailTaken      = errors.New("email already registered")
)

// Account is a login identity. Email is stored lower-cased.
type Account struct {
	ID           AccountID
	Email        string
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// NormalizeEmail lower-cases and trims an email address. All email
// comparisons in the system go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountRepo stores accounts.
type AccountRepo interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id AccountID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

// MemoryAccountRepo is an in-memory AccountRepo. It stores and returns
// copies so persisted state stays isolated from caller mutation.
type MemoryAccountRepo struct {
	mu      sync.RWMutex
	byID    map[AccountID]*Account
	byEmail map[string]AccountID
}

// NewMemoryAccountRepo creates an empty in-memory account repo.
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		byID:    make(map[AccountID]*Account),
		byEmail: make(map[string]AccountID),
	}
}

func (r *MemoryAccountRepo) Create(ctx context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ID == "" {
		account.ID = AccountID(uuid.New().String())
	}
	account.Email = NormalizeEmail(account.Email)
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if _, ok := r.byEmail[account.Email]; ok {
		return ErrEmailTaken
	}

	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *MemoryAccountRepo) GetByID(ctx context.Context, id AccountID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := *account
	return &c, nil
}

func (r *MemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := *r.byID[id]
	return &c, nil
}
