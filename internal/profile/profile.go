// Package profile holds coach and athlete profiles.
//
// Profile identifiers are deliberately distinct types from account
// identifiers: a relationship references a coach *profile*, never a coach
// account, and the compiler enforces that the two are not mixed up.
package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachlink/coachlink-go/internal/identity"
)

// CoachProfileID identifies a coach profile.
type CoachProfileID string

// AthleteProfileID identifies an athlete profile.
type AthleteProfileID string

var (
	ErrCoachNotFound   = errors.New("coach profile not found")
	ErrAthleteNotFound = errors.New("athlete profile not found")
)

// CoachProfile is the public face of a coach.
type CoachProfile struct {
	ID          CoachProfileID
	AccountID   identity.AccountID
	DisplayName string
	Headline    string
	Bio         string
	CreatedAt   time.Time
}

// AthleteProfile is an athlete's profile. CoachID records the current coach
// linkage established through an accepted invitation; empty when uncoached.
type AthleteProfile struct {
	ID          AthleteProfileID
	AccountID   identity.AccountID
	DisplayName string
	CoachID     CoachProfileID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CoachRepo stores coach profiles.
type CoachRepo interface {
	Create(ctx context.Context, p *CoachProfile) error
	GetByID(ctx context.Context, id CoachProfileID) (*CoachProfile, error)
	GetByAccountID(ctx context.Context, accountID identity.AccountID) (*CoachProfile, error)
}

// AthleteRepo stores athlete profiles.
type AthleteRepo interface {
	Create(ctx context.Context, p *AthleteProfile) error
	GetByID(ctx context.Context, id AthleteProfileID) (*AthleteProfile, error)
	GetByAccountID(ctx context.Context, accountID identity.AccountID) (*AthleteProfile, error)
	// LinkCoach records the coach linkage on the athlete profile.
	LinkCoach(ctx context.Context, id AthleteProfileID, coachID CoachProfileID) error
}

// MemoryCoachRepo is an in-memory CoachRepo. It stores and returns copies
// so persisted state stays isolated from caller mutation.
type MemoryCoachRepo struct {
	mu        sync.RWMutex
	byID      map[CoachProfileID]*CoachProfile
	byAccount map[identity.AccountID]CoachProfileID
}

// NewMemoryCoachRepo creates an empty in-memory coach repo.
func NewMemoryCoachRepo() *MemoryCoachRepo {
	return &MemoryCoachRepo{
		byID:      make(map[CoachProfileID]*CoachProfile),
		byAccount: make(map[identity.AccountID]CoachProfileID),
	}
}

func (r *MemoryCoachRepo) Create(ctx context.Context, p *CoachProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = CoachProfileID(uuid.New().String())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	stored := *p
	r.byID[p.ID] = &stored
	r.byAccount[p.AccountID] = p.ID
	return nil
}

func (r *MemoryCoachRepo) GetByID(ctx context.Context, id CoachProfileID) (*CoachProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrCoachNotFound
	}
	c := *p
	return &c, nil
}

func (r *MemoryCoachRepo) GetByAccountID(ctx context.Context, accountID identity.AccountID) (*CoachProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAccount[accountID]
	if !ok {
		return nil, ErrCoachNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

// MemoryAthleteRepo is an in-memory AthleteRepo. Same copy discipline as
// MemoryCoachRepo.
type MemoryAthleteRepo struct {
	mu        sync.RWMutex
	byID      map[AthleteProfileID]*AthleteProfile
	byAccount map[identity.AccountID]AthleteProfileID
}

// NewMemoryAthleteRepo creates an empty in-memory athlete repo.
func NewMemoryAthleteRepo() *MemoryAthleteRepo {
	return &MemoryAthleteRepo{
		byID:      make(map[AthleteProfileID]*AthleteProfile),
		byAccount: make(map[identity.AccountID]AthleteProfileID),
	}
}

func (r *MemoryAthleteRepo) Create(ctx context.Context, p *AthleteProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = AthleteProfileID(uuid.New().String())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	stored := *p
	r.byID[p.ID] = &stored
	r.byAccount[p.AccountID] = p.ID
	return nil
}

func (r *MemoryAthleteRepo) GetByID(ctx context.Context, id AthleteProfileID) (*AthleteProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrAthleteNotFound
	}
	c := *p
	return &c, nil
}

func (r *MemoryAthleteRepo) GetByAccountID(ctx context.Context, accountID identity.AccountID) (*AthleteProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAccount[accountID]
	if !ok {
		return nil, ErrAthleteNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *MemoryAthleteRepo) LinkCoach(ctx context.Context, id AthleteProfileID, coachID CoachProfileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return ErrAthleteNotFound
	}
	p.CoachID = coachID
	p.UpdatedAt = time.Now()
	return nil
}
