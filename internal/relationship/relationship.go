// Package relationship holds the durable record of an accepted coaching
// pairing. A relationship is created exactly once, when an invitation is
// accepted, and is never deleted by this subsystem.
package relationship

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachlink/coachlink-go/internal/profile"
)

// ID identifies a relationship.
type ID string

// Status is the relationship lifecycle status. Only "active" is produced
// here; ended/paused lifecycles belong to another subsystem.
type Status string

const StatusActive Status = "active"

var (
	ErrNotFound      = errors.New("relationship not found")
	ErrAlreadyExists = errors.New("relationship already exists for invitation")
)

// Relationship pairs a coach profile with an athlete profile.
// CoachID is the coach's *profile* id, never the coach's account id.
type Relationship struct {
	ID              ID
	CoachID         profile.CoachProfileID
	AthleteID       profile.AthleteProfileID
	InvitationID    string
	TermsAcceptedAt time.Time
	TermsVersion    string
	Status          Status
	CreatedAt       time.Time
}

// Repo stores relationships.
type Repo interface {
	// Create inserts the relationship. At most one relationship may exist
	// per invitation; a second insert returns ErrAlreadyExists.
	Create(ctx context.Context, rel *Relationship) error
	GetByInvitationID(ctx context.Context, invitationID string) (*Relationship, error)
	ListByCoach(ctx context.Context, coachID profile.CoachProfileID) ([]*Relationship, error)
}

// MemoryRepo is an in-memory Repo.
type MemoryRepo struct {
	mu           sync.RWMutex
	byID         map[ID]*Relationship
	byInvitation map[string]ID
}

// NewMemoryRepo creates an empty in-memory relationship repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:         make(map[ID]*Relationship),
		byInvitation: make(map[string]ID),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, rel *Relationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byInvitation[rel.InvitationID]; ok {
		return ErrAlreadyExists
	}

	if rel.ID == "" {
		rel.ID = ID(uuid.New().String())
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	if rel.Status == "" {
		rel.Status = StatusActive
	}

	r.byID[rel.ID] = rel
	r.byInvitation[rel.InvitationID] = rel.ID
	return nil
}

func (r *MemoryRepo) GetByInvitationID(ctx context.Context, invitationID string) (*Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byInvitation[invitationID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) ListByCoach(ctx context.Context, coachID profile.CoachProfileID) ([]*Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Relationship, 0)
	for _, rel := range r.byID {
		if rel.CoachID == coachID {
			result = append(result, rel)
		}
	}
	return result, nil
}
