// Package public implements the athlete-facing invitation endpoints. The
// token itself is the credential for reading a verdict; accept and decline
// additionally require an authenticated account whose email matches the
// invitation, and any mismatch reads as not-found so tokens cannot be
// probed for ownership.
package public

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coachlink/coachlink-go/internal/api"
	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
	"github.com/coachlink/coachlink-go/internal/profile"
)

// CoachView is the inviting coach's public display info.
type CoachView struct {
	DisplayName string `json:"displayName"`
	Headline    string `json:"headline,omitempty"`
}

// VerdictView is the invite landing page payload.
type VerdictView struct {
	IsValid     bool `json:"isValid"`
	IsExpired   bool `json:"isExpired"`
	IsAccepted  bool `json:"isAccepted"`
	IsCancelled bool `json:"isCancelled"`

	Coach        CoachView `json:"coach"`
	Email        string    `json:"email"`
	Message      string    `json:"message,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	HasAccount   bool      `json:"hasAccount"`
	ExistingRole string    `json:"existingRole,omitempty"`
}

// AcceptRequest is the request body for the accept endpoint.
type AcceptRequest struct {
	TermsVersion string `json:"termsVersion"`
}

// RelationshipView is the established relationship returned by accept.
type RelationshipView struct {
	ID              string    `json:"id"`
	CoachID         string    `json:"coachId"`
	AthleteID       string    `json:"athleteId"`
	TermsVersion    string    `json:"termsVersion"`
	TermsAcceptedAt time.Time `json:"termsAcceptedAt"`
	Status          string    `json:"status"`
}

// AcceptResponse is returned by the accept endpoint. Replayed marks an
// idempotent retry that found the relationship already established.
type AcceptResponse struct {
	Relationship RelationshipView `json:"relationship"`
	Replayed     bool             `json:"replayed"`
	EmailSent    bool             `json:"emailSent"`
}

// Handler handles token validation, accept, and decline.
type Handler struct {
	val            *invitation.Validator
	est            *invitation.Establisher
	athletes       profile.AthleteRepo
	currentAccount func(context.Context) (*identity.Account, error)
	log            *slog.Logger
}

// NewHandler creates a public invitations handler.
func NewHandler(
	val *invitation.Validator,
	est *invitation.Establisher,
	athletes profile.AthleteRepo,
	currentAccount func(context.Context) (*identity.Account, error),
	log *slog.Logger,
) *Handler {
	return &Handler{
		val:            val,
		est:            est,
		athletes:       athletes,
		currentAccount: currentAccount,
		log:            logutil.NoopIfNil(log),
	}
}

// HandleValidate handles GET /api/public/invitations/{token}.
// No authentication: possession of the token is the credential.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.val.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(VerdictView{
		IsValid:     verdict.IsValid,
		IsExpired:   verdict.IsExpired,
		IsAccepted:  verdict.IsAccepted,
		IsCancelled: verdict.IsCancelled,
		Coach: CoachView{
			DisplayName: verdict.Coach.DisplayName,
			Headline:    verdict.Coach.Headline,
		},
		Email:        verdict.Invitation.Email,
		Message:      verdict.Invitation.Message,
		ExpiresAt:    verdict.Invitation.ExpiresAt,
		HasAccount:   verdict.HasAccount,
		ExistingRole: string(verdict.ExistingRole),
	})
}

// guardedInvitation resolves the token and enforces that the authenticated
// account's email matches the invitation. A mismatch is written as
// not-found, never as forbidden.
func (h *Handler) guardedInvitation(w http.ResponseWriter, r *http.Request) (*invitation.Invitation, *identity.Account, bool) {
	token := chi.URLParam(r, "token")

	account, err := h.currentAccount(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return nil, nil, false
	}

	verdict, err := h.val.Validate(r.Context(), token)
	if err != nil {
		api.WriteDomainError(w, err)
		return nil, nil, false
	}

	if verdict.Invitation.Email != identity.NormalizeEmail(account.Email) {
		h.log.Warn("invitation email mismatch masked as not-found",
			"invitation_id", verdict.Invitation.ID, "account_id", account.ID)
		api.WriteNotFound(w, "invitation not found")
		return nil, nil, false
	}

	return verdict.Invitation, account, true
}

// HandleAccept handles POST /api/public/invitations/{token}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	inv, account, ok := h.guardedInvitation(w, r)
	if !ok {
		return
	}

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}
	if req.TermsVersion == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "termsVersion is required")
		return
	}

	athlete, err := h.athletes.GetByAccountID(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, profile.ErrAthleteNotFound) {
			api.WriteError(w, http.StatusUnprocessableEntity, api.ReasonPreconditionFailed,
				"athlete profile required before accepting")
			return
		}
		h.log.Error("failed to resolve athlete profile", "account_id", account.ID, "error", err)
		api.WriteInternalError(w, "failed to resolve athlete profile")
		return
	}

	result, err := h.est.Accept(r.Context(), invitation.AcceptParams{
		Token:        inv.Token,
		AthleteID:    athlete.ID,
		TermsVersion: req.TermsVersion,
	})
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AcceptResponse{
		Relationship: RelationshipView{
			ID:              string(result.Relationship.ID),
			CoachID:         string(result.Relationship.CoachID),
			AthleteID:       string(result.Relationship.AthleteID),
			TermsVersion:    result.Relationship.TermsVersion,
			TermsAcceptedAt: result.Relationship.TermsAcceptedAt,
			Status:          string(result.Relationship.Status),
		},
		Replayed:  result.Replayed,
		EmailSent: result.NotifyErr == nil,
	})
}

// HandleDecline handles POST /api/public/invitations/{token}/decline.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	inv, _, ok := h.guardedInvitation(w, r)
	if !ok {
		return
	}

	declined, err := h.est.Decline(r.Context(), inv.Token)
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":     string(declined.ID),
		"status": string(declined.Status),
	})
}
