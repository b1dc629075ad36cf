package invitation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachlink/coachlink-go/internal/identity"
)

// ListFilter narrows and pages a coach's invitation listing.
type ListFilter struct {
	Status Status // empty matches all
	Email  string // empty matches all; compared case-insensitively
	Limit  int    // 0 means no limit
	Offset int
}

// Repo is the durable store of invitations. Implementations must enforce
// the one-pending-per-(coach,email) invariant on Create and must apply
// Update conditionally on the stored status, so concurrent accept/cancel
// collapses to a single winner.
type Repo interface {
	// Create inserts a new invitation. Returns ErrDuplicatePending when a
	// pending invitation already exists for the same coach and email.
	Create(ctx context.Context, inv *Invitation) error

	GetByID(ctx context.Context, id ID) (*Invitation, error)

	// GetByToken resolves a bearer token. Unknown tokens, malformed or not,
	// return ErrNotFound without distinction.
	GetByToken(ctx context.Context, token string) (*Invitation, error)

	FindPendingByCoachAndEmail(ctx context.Context, coachID identity.AccountID, email string) (*Invitation, error)

	// Update persists inv only when the stored status is one of expect
	// (any status when expect is empty). A failed precondition returns
	// StatusConflictError carrying the stored status. An update that would
	// put a second pending row on the same (coach, email) slot returns
	// ErrDuplicatePending.
	Update(ctx context.Context, inv *Invitation, expect ...Status) error

	// ListByCoach returns a coach's invitations newest-first.
	ListByCoach(ctx context.Context, coachID identity.AccountID, f ListFilter) ([]*Invitation, error)
}

// MemoryRepo is an in-memory Repo. It returns copies so the conditional
// Update precondition observes only persisted state, never a caller's
// in-flight mutation.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[ID]*Invitation
	byToken   map[string]ID
	byPending map[string]ID // coachID \x00 email -> id, pending rows only
}

// NewMemoryRepo creates an empty in-memory invitation repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[ID]*Invitation),
		byToken:   make(map[string]ID),
		byPending: make(map[string]ID),
	}
}

func pendingKey(coachID identity.AccountID, email string) string {
	return string(coachID) + "\x00" + identity.NormalizeEmail(email)
}

func clone(inv *Invitation) *Invitation {
	c := *inv
	if inv.AcceptedAt != nil {
		t := *inv.AcceptedAt
		c.AcceptedAt = &t
	}
	return &c
}

func (r *MemoryRepo) Create(ctx context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inv.ID == "" {
		inv.ID = ID(uuid.New().String())
	}
	inv.Email = identity.NormalizeEmail(inv.Email)
	now := time.Now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if inv.Status == "" {
		inv.Status = StatusPending
	}

	key := pendingKey(inv.CoachID, inv.Email)
	if inv.Status == StatusPending {
		if _, ok := r.byPending[key]; ok {
			return ErrDuplicatePending
		}
	}

	r.byID[inv.ID] = clone(inv)
	r.byToken[inv.Token] = inv.ID
	if inv.Status == StatusPending {
		r.byPending[key] = inv.ID
	}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id ID) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(inv), nil
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return nil, ErrNotFound
	}
	id, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepo) FindPendingByCoachAndEmail(ctx context.Context, coachID identity.AccountID, email string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPending[pendingKey(coachID, email)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepo) Update(ctx context.Context, inv *Invitation, expect ...Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[inv.ID]
	if !ok {
		return ErrNotFound
	}

	if len(expect) > 0 {
		matched := false
		for _, s := range expect {
			if stored.Status == s {
				matched = true
				break
			}
		}
		if !matched {
			return &StatusConflictError{Current: stored.Status}
		}
	}

	key := pendingKey(stored.CoachID, stored.Email)
	switch {
	case stored.Status == StatusPending && inv.Status != StatusPending:
		delete(r.byPending, key)
	case stored.Status != StatusPending && inv.Status == StatusPending:
		// Re-entering pending must not collide with a newer pending
		// invitation for the same coach and email.
		if other, ok := r.byPending[key]; ok && other != inv.ID {
			return ErrDuplicatePending
		}
		r.byPending[key] = inv.ID
	}

	inv.UpdatedAt = time.Now()
	r.byID[inv.ID] = clone(inv)
	return nil
}

func (r *MemoryRepo) ListByCoach(ctx context.Context, coachID identity.AccountID, f ListFilter) ([]*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email := identity.NormalizeEmail(f.Email)
	result := make([]*Invitation, 0)
	for _, inv := range r.byID {
		if inv.CoachID != coachID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if email != "" && inv.Email != email {
			continue
		}
		result = append(result, clone(inv))
	}

	// Newest first by most recent send
	sort.Slice(result, func(i, j int) bool {
		return result[i].SentAt.After(result[j].SentAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []*Invitation{}, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}
