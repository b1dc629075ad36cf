package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/coachlink/coachlink-go/internal/api"
	"github.com/coachlink/coachlink-go/internal/identity"
)

type contextKey string

const (
	// AccountContextKey is the context key for the authenticated account.
	AccountContextKey contextKey = "account"
	// SessionContextKey is the context key for the current session, when
	// the caller authenticated with an opaque session rather than a bearer
	// token.
	SessionContextKey contextKey = "session"
)

var errNoAccount = errors.New("no authenticated account in context")

// loggingMiddleware logs request information using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware resolves the caller's identity and enforces it on
// protected paths. Identity is resolved even on public paths when a token
// is present: the athlete-facing accept and decline endpoints are mounted
// public (the invitation token gates them) but still need to know who is
// calling.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, resolved := s.resolveIdentity(r)

		if !IsAuthRequired(r.URL.Path) {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if !resolved {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveIdentity tries the opaque session first, then a platform-issued
// bearer token. It returns the (possibly enriched) context and whether an
// account was attached.
func (s *Server) resolveIdentity(r *http.Request) (context.Context, bool) {
	ctx := r.Context()

	token := extractSessionToken(r)
	if token == "" {
		return ctx, false
	}

	session, err := s.deps.Sessions.GetByToken(ctx, token)
	if err == nil {
		if session.Expired(time.Now()) {
			return ctx, false
		}
		account, err := s.deps.Accounts.GetByID(ctx, session.AccountID)
		if err != nil {
			return ctx, false
		}
		ctx = context.WithValue(ctx, SessionContextKey, session)
		ctx = context.WithValue(ctx, AccountContextKey, account)
		return ctx, true
	}

	if s.deps.Bearer != nil {
		claims, err := s.deps.Bearer.Verify(token)
		if err != nil {
			return ctx, false
		}
		account, err := s.deps.Accounts.GetByID(ctx, identity.AccountID(claims.Subject))
		if err != nil {
			return ctx, false
		}
		return context.WithValue(ctx, AccountContextKey, account), true
	}

	return ctx, false
}

// extractSessionToken gets the token from cookie or Authorization header.
func extractSessionToken(r *http.Request) string {
	cookie, err := r.Cookie("session")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

// CurrentAccount returns the authenticated account from request context.
// Handlers receive this as their identity resolver.
func CurrentAccount(ctx context.Context) (*identity.Account, error) {
	account, _ := ctx.Value(AccountContextKey).(*identity.Account)
	if account == nil {
		return nil, errNoAccount
	}
	return account, nil
}

// SessionFromContext returns the session from request context, or nil when
// the caller authenticated with a bearer token.
func SessionFromContext(ctx context.Context) *identity.Session {
	session, _ := ctx.Value(SessionContextKey).(*identity.Session)
	return session
}

// RateLimitConfig holds configuration for a rate-limited endpoint.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// simpleRateLimiter is an in-memory rate limiter per key.
type simpleRateLimiter struct {
	mu       sync.Mutex
	counters map[string]*limitCounter
	limit    int
	burst    int
	window   time.Duration
}

type limitCounter struct {
	count   int
	resetAt time.Time
}

func newSimpleRateLimiter(requestsPerMinute, burst int) *simpleRateLimiter {
	return &simpleRateLimiter{
		counters: make(map[string]*limitCounter),
		limit:    requestsPerMinute,
		burst:    burst,
		window:   time.Minute,
	}
}

func (l *simpleRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	counter, exists := l.counters[key]
	if !exists || now.After(counter.resetAt) {
		l.counters[key] = &limitCounter{
			count:   1,
			resetAt: now.Add(l.window),
		}
		return true
	}

	if counter.count < l.limit+l.burst {
		counter.count++
		return true
	}

	return false
}

// rateLimitMiddleware applies rate limiting to specific path prefixes.
func (s *Server) rateLimitMiddleware(config map[string]RateLimitConfig) func(next http.Handler) http.Handler {
	limiters := make(map[string]*simpleRateLimiter)
	for path, cfg := range config {
		limiters[path] = newSimpleRateLimiter(cfg.RequestsPerMinute, cfg.Burst)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiter *simpleRateLimiter
			var matchedPath string
			for path := range limiters {
				if r.URL.Path == path || strings.HasPrefix(r.URL.Path, path+"/") {
					limiter = limiters[path]
					matchedPath = path
					break
				}
			}

			if limiter != nil {
				clientIP := clientIPKey(r)

				if !limiter.allow(clientIP) {
					s.logger.Warn("rate limit exceeded",
						"path", matchedPath,
						"client_ip", clientIP,
					)
					w.Header().Set("Retry-After", "60")
					api.WriteError(w, http.StatusTooManyRequests, "rate_limited",
						"too many requests, please try again later")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIPKey derives the rate-limit key from the peer address.
func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
