// Package invitations implements the session-gated coach-side invitation
// endpoints. All endpoints enforce per-coach scoping via the injected
// currentAccount resolver; invitations owned by another coach read as
// not-found.
package invitations

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coachlink/coachlink-go/internal/api"
	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// InvitationView is the coach-facing view of an invitation. Status is the
// derived status, so a pending invitation past its window reads as expired
// without any background sweep. The token is deliberately absent; it only
// appears in the create response.
type InvitationView struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Message    string     `json:"message,omitempty"`
	Status     string     `json:"status"`
	SentAt     time.Time  `json:"sentAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// CreateRequest is the request body for POST /api/invitations.
type CreateRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SendResponse is returned by create and resend. EmailSent reports the
// dispatch outcome; a false value never means the command failed.
type SendResponse struct {
	Invitation InvitationView `json:"invitation"`
	Token      string         `json:"token,omitempty"`
	EmailSent  bool           `json:"emailSent"`
}

// ListResponse wraps the invitation views returned by HandleList.
type ListResponse struct {
	Invitations []InvitationView `json:"invitations"`
}

// Handler handles coach-side invitation create, resend, cancel, and list.
type Handler struct {
	svc            *invitation.Service
	clock          invitation.Clock
	currentAccount func(context.Context) (*identity.Account, error)
	log            *slog.Logger
}

// NewHandler creates a coach-side invitations handler.
func NewHandler(
	svc *invitation.Service,
	clock invitation.Clock,
	currentAccount func(context.Context) (*identity.Account, error),
	log *slog.Logger,
) *Handler {
	if clock == nil {
		clock = invitation.SystemClock{}
	}
	return &Handler{
		svc:            svc,
		clock:          clock,
		currentAccount: currentAccount,
		log:            logutil.NoopIfNil(log),
	}
}

func (h *Handler) view(inv *invitation.Invitation) InvitationView {
	return InvitationView{
		ID:         string(inv.ID),
		Email:      inv.Email,
		Message:    inv.Message,
		Status:     string(inv.DerivedStatus(h.clock.Now())),
		SentAt:     inv.SentAt,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedAt:  inv.CreatedAt,
	}
}

// requireCoach resolves the calling account and rejects non-coach roles.
func (h *Handler) requireCoach(w http.ResponseWriter, r *http.Request) (*identity.Account, bool) {
	account, err := h.currentAccount(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return nil, false
	}
	if account.Role != identity.RoleCoach {
		api.WriteForbidden(w, api.ReasonUnauthorized, "coach account required")
		return nil, false
	}
	return account, true
}

// HandleCreate handles POST /api/invitations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireCoach(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "email is required")
		return
	}

	out, err := h.svc.Create(r.Context(), account.ID, invitation.CreateParams{
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SendResponse{
		Invitation: h.view(out.Invitation),
		Token:      out.Invitation.Token,
		EmailSent:  out.NotifyErr == nil,
	})
}

// HandleResend handles POST /api/invitations/{invitationId}/resend.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireCoach(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "invitationId")
	if id == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "invitationId is required")
		return
	}

	out, err := h.svc.Resend(r.Context(), account.ID, invitation.ID(id))
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SendResponse{
		Invitation: h.view(out.Invitation),
		EmailSent:  out.NotifyErr == nil,
	})
}

// HandleCancel handles POST /api/invitations/{invitationId}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireCoach(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "invitationId")
	if id == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "invitationId is required")
		return
	}

	inv, err := h.svc.Cancel(r.Context(), account.ID, invitation.ID(id))
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"invitation": h.view(inv)})
}

// HandleList handles GET /api/invitations.
// Supports status, email, limit, and offset query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireCoach(w, r)
	if !ok {
		return
	}

	filter := invitation.ListFilter{
		Status: invitation.Status(r.URL.Query().Get("status")),
		Email:  r.URL.Query().Get("email"),
		Limit:  defaultListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.WriteBadRequest(w, api.ReasonInvalidField, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		filter.Limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.WriteBadRequest(w, api.ReasonInvalidField, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	list, err := h.svc.List(r.Context(), account.ID, filter)
	if err != nil {
		h.log.Error("failed to list invitations", "coach_id", account.ID, "error", err)
		api.WriteInternalError(w, "failed to list invitations")
		return
	}

	views := make([]InvitationView, 0, len(list))
	for _, inv := range list {
		views = append(views, h.view(inv))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Invitations: views})
}
