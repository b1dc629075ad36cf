package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/profile"
)

// DefaultSessionTTL is the session duration used when the handler is
// constructed with a zero TTL.
const DefaultSessionTTL = 72 * time.Hour

// AuthHandler handles registration, login, logout, and the current-account
// endpoint. Registration also creates the role-matching profile so a fresh
// coach can invite and a fresh athlete can accept without extra setup.
type AuthHandler struct {
	accounts   identity.AccountRepo
	sessions   identity.SessionRepo
	auth       *identity.PasswordAuth
	coaches    profile.CoachRepo
	athletes   profile.AthleteRepo
	sessionTTL time.Duration
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(
	accounts identity.AccountRepo,
	sessions identity.SessionRepo,
	auth *identity.PasswordAuth,
	coaches profile.CoachRepo,
	athletes profile.AthleteRepo,
	sessionTTL time.Duration,
) *AuthHandler {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthHandler{
		accounts:   accounts,
		sessions:   sessions,
		auth:       auth,
		coaches:    coaches,
		athletes:   athletes,
		sessionTTL: sessionTTL,
	}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountView is the account representation returned by auth endpoints.
type AccountView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	Account   AccountView `json:"account"`
}

func accountView(a *identity.Account) AccountView {
	return AccountView{
		ID:          string(a.ID),
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		WriteBadRequest(w, ReasonInvalidField, "password must be at least 8 characters")
		return
	}

	role := identity.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != identity.RoleCoach && role != identity.RoleAthlete {
		WriteBadRequest(w, ReasonInvalidField, "role must be coach or athlete")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		WriteInternalError(w, "failed to process credentials")
		return
	}

	ctx := r.Context()
	account := &identity.Account{
		Email:        email,
		DisplayName:  req.DisplayName,
		Role:         role,
		PasswordHash: hash,
	}
	if err := h.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			WriteConflict(w, ReasonConflict, "email already registered")
			return
		}
		WriteInternalError(w, "failed to create account")
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = email
	}
	switch role {
	case identity.RoleCoach:
		err = h.coaches.Create(ctx, &profile.CoachProfile{
			AccountID:   account.ID,
			DisplayName: displayName,
		})
	case identity.RoleAthlete:
		err = h.athletes.Create(ctx, &profile.AthleteProfile{
			AccountID:   account.ID,
			DisplayName: displayName,
		})
	}
	if err != nil {
		WriteInternalError(w, "failed to create profile")
		return
	}

	session, err := h.sessions.Create(ctx, account.ID, h.sessionTTL)
	if err != nil {
		WriteInternalError(w, "failed to create session")
		return
	}
	h.setSessionCookie(w, r, session)

	writeJSON(w, http.StatusCreated, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		Account:   accountView(account),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "email and password are required")
		return
	}

	ctx := r.Context()
	account, err := h.auth.Authenticate(ctx, h.accounts, req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password read identically.
		WriteUnauthorized(w, ReasonInvalidCredentials, "invalid email or password")
		return
	}

	session, err := h.sessions.Create(ctx, account.ID, h.sessionTTL)
	if err != nil {
		WriteInternalError(w, "failed to create session")
		return
	}
	h.setSessionCookie(w, r, session)

	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		Account:   accountView(account),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		WriteUnauthorized(w, ReasonUnauthenticated, "no session token provided")
		return
	}

	h.sessions.Delete(r.Context(), token)

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		WriteUnauthorized(w, ReasonUnauthenticated, "no session token provided")
		return
	}

	ctx := r.Context()
	session, err := h.sessions.GetByToken(ctx, token)
	if err != nil || session.Expired(time.Now()) {
		WriteUnauthorized(w, ReasonSessionExpired, "session expired or invalid")
		return
	}

	account, err := h.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, accountView(account))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, session *identity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractToken gets the session token from Authorization header or cookie.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
