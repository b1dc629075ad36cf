// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coachlink/coachlink-go/internal/api"
	"github.com/coachlink/coachlink-go/internal/api/invitations"
	"github.com/coachlink/coachlink-go/internal/api/public"
	"github.com/coachlink/coachlink-go/internal/config"
	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/profile"
)

var ErrMissingDep = errors.New("missing required dependency")

// Deps holds all server dependencies.
type Deps struct {
	// Required: identity and auth
	Accounts identity.AccountRepo
	Sessions identity.SessionRepo
	Auth     *identity.PasswordAuth

	// Required: profiles
	Coaches  profile.CoachRepo
	Athletes profile.AthleteRepo

	// Required: invitation lifecycle
	InviteService *invitation.Service
	Validator     *invitation.Validator
	Establisher   *invitation.Establisher

	// Optional: platform bearer token verification (nil disables bearer auth)
	Bearer *identity.BearerVerifier
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
	deps       *Deps

	authHandler        *api.AuthHandler
	invitationsHandler *invitations.Handler
	publicHandler      *public.Handler
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	// Fail fast: validate required dependencies
	if err := validateDeps(deps); err != nil {
		return nil, err
	}

	sessionTTL := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	authHandler := api.NewAuthHandler(deps.Accounts, deps.Sessions, deps.Auth,
		deps.Coaches, deps.Athletes, sessionTTL)

	invitationsHandler := invitations.NewHandler(deps.InviteService, nil, CurrentAccount, logger)
	publicHandler := public.NewHandler(deps.Validator, deps.Establisher, deps.Athletes,
		CurrentAccount, logger)

	s := &Server{
		cfg:                cfg,
		logger:             logger,
		deps:               deps,
		authHandler:        authHandler,
		invitationsHandler: invitationsHandler,
		publicHandler:      publicHandler,
	}

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the configured router. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"external_origin", s.cfg.ExternalOrigin,
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// validateDeps checks that all required dependencies are provided.
func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}

	if deps.Accounts == nil {
		return fmt.Errorf("%w: Accounts", ErrMissingDep)
	}
	if deps.Sessions == nil {
		return fmt.Errorf("%w: Sessions", ErrMissingDep)
	}
	if deps.Auth == nil {
		return fmt.Errorf("%w: Auth", ErrMissingDep)
	}
	if deps.Coaches == nil {
		return fmt.Errorf("%w: Coaches", ErrMissingDep)
	}
	if deps.Athletes == nil {
		return fmt.Errorf("%w: Athletes", ErrMissingDep)
	}
	if deps.InviteService == nil {
		return fmt.Errorf("%w: InviteService", ErrMissingDep)
	}
	if deps.Validator == nil {
		return fmt.Errorf("%w: Validator", ErrMissingDep)
	}
	if deps.Establisher == nil {
		return fmt.Errorf("%w: Establisher", ErrMissingDep)
	}

	// Bearer is optional
	return nil
}
