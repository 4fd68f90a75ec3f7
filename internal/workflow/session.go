package workflow

import (
	"context"
	"net/http"
	"sync"

	"coupon-desk/internal/classify"
	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"

	"github.com/rs/zerolog"
)

// SessionSnapshot is a read-only view of the session gate state.
type SessionSnapshot struct {
	Pending bool

	// Authenticated signals the caller to proceed past the login screen. The
	// credential itself is a cookie owned by the transport client.
	Authenticated bool

	// Err is the last failed attempt's error. It has no auto-dismiss: it
	// stays until the next submit or navigation away.
	Err *model.DomainError
}

// Session drives the admin login interaction. The client tracks no session
// fields beyond the outcome of the last attempt; the credential cookie is
// established server-side and carried by the transport.
type Session struct {
	sender transport.Sender
	logger zerolog.Logger

	mu            sync.Mutex
	pending       bool
	authenticated bool
	err           *model.DomainError
}

// NewSession creates a session gate.
func NewSession(sender transport.Sender, logger zerolog.Logger) *Session {
	return &Session{
		sender: sender,
		logger: logger.With().Str("workflow", "session").Logger(),
	}
}

// Login submits the credentials as given, empty or not; the server does the
// checking. Returns false without issuing anything if an attempt is already
// pending. A new attempt clears the previous attempt's error.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	s.err = nil
	s.mu.Unlock()

	go s.run(ctx, username, password)
	return true
}

func (s *Session) run(ctx context.Context, username, password string) {
	resp, err := s.sender.Send(ctx, http.MethodPost, "/api/admin/login", model.LoginRequest{
		Username: username,
		Password: password,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	if err != nil || resp.Status >= 400 {
		s.authenticated = false
		s.err = classify.Error(resp, err, classify.ContextLogin)
		s.logger.Warn().Str("username", username).Str("tag", s.err.Tag).Msg("login failed")
		return
	}

	s.authenticated = true
	s.err = nil
	s.logger.Info().Str("username", username).Msg("logged in")
}

// Reset clears the gate on navigation away from the login screen.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		s.authenticated = false
		s.err = nil
	}
}

// IsPending reports whether a login attempt is in flight.
func (s *Session) IsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Snapshot returns a read-only copy of the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionSnapshot{
		Pending:       s.pending,
		Authenticated: s.authenticated,
		Err:           s.err,
	}
}
