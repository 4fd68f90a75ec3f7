// Package fakeserver is an in-memory stand-in for the coupon distribution
// backend. It implements the five endpoints the client consumes: public
// claim, admin login, and the admin roster operations. Coupons are handed out
// round-robin across the active ones, one per visitor session.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"coupon-desk/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	adminCookie   = "admin_session"
	visitorCookie = "visitor_session"
)

// Config holds the admin credentials the login endpoint accepts.
type Config struct {
	AdminUsername string
	AdminPassword string
}

// Server holds the in-memory coupon state.
type Server struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	coupons  []model.Coupon
	cursor   int             // round-robin position over the roster
	admins   map[string]bool // live admin session tokens
	claimers map[string]bool // visitor sessions that already claimed
}

// New creates an empty coupon server.
func New(cfg Config, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "fakeserver").Logger(),
		admins:   make(map[string]bool),
		claimers: make(map[string]bool),
	}
}

// Seed adds coupons directly, bypassing the admin API. Test convenience.
func (s *Server) Seed(codes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		s.coupons = append(s.coupons, model.Coupon{
			ID:        uuid.NewString(),
			Code:      code,
			IsActive:  true,
			ClaimedBy: []string{},
		})
	}
}

// Handler returns the HTTP handler with all routes and middleware configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recovery(s.logger))
	r.Use(requestLogging(s.logger))

	r.Post("/api/coupons/claim", s.handleClaim)
	r.Post("/api/admin/login", s.handleLogin)

	r.Route("/api/admin/coupons", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Patch("/{id}/toggle", s.handleToggle)
	})

	return r
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	visitor := s.visitorSession(w, r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimers[visitor] {
		writeMessage(w, http.StatusTooManyRequests, "You have already claimed a coupon in this session")
		return
	}

	idx, ok := s.nextActiveLocked()
	if !ok {
		writeMessage(w, http.StatusNotFound, "No coupons available")
		return
	}

	s.coupons[idx].ClaimedBy = append(s.coupons[idx].ClaimedBy, visitor)
	s.claimers[visitor] = true
	s.cursor = idx + 1

	s.logger.Info().Str("code", s.coupons[idx].Code).Msg("coupon claimed")
	writeJSON(w, http.StatusOK, model.ClaimResult{Code: s.coupons[idx].Code})
}

// nextActiveLocked scans the roster round-robin from the cursor for the next
// active coupon.
func (s *Server) nextActiveLocked() (int, bool) {
	n := len(s.coupons)
	for i := 0; i < n; i++ {
		idx := (s.cursor + i) % n
		if s.coupons[idx].IsActive {
			return idx, true
		}
	}
	return 0, false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username != s.cfg.AdminUsername || req.Password != s.cfg.AdminPassword {
		s.logger.Warn().Str("username", req.Username).Msg("rejected login")
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.admins[token] = true
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so encoding happens outside the live slice.
	coupons := make([]model.Coupon, len(s.coupons))
	copy(coupons, s.coupons)

	writeJSON(w, http.StatusOK, coupons)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.coupons {
		if c.Code == code {
			writeMessage(w, http.StatusBadRequest, "Coupon code already exists")
			return
		}
	}

	coupon := model.Coupon{
		ID:        uuid.NewString(),
		Code:      code,
		IsActive:  true,
		ClaimedBy: []string{},
	}
	s.coupons = append(s.coupons, coupon)

	s.logger.Info().Str("code", code).Msg("coupon created")
	writeJSON(w, http.StatusCreated, coupon)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.coupons {
		if s.coupons[i].ID == id {
			s.coupons[i].IsActive = !s.coupons[i].IsActive
			s.logger.Info().
				Str("code", s.coupons[i].Code).
				Bool("is_active", s.coupons[i].IsActive).
				Msg("coupon toggled")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	writeMessage(w, http.StatusNotFound, "Coupon not found")
}

// requireAdmin rejects requests without a live admin session cookie.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookie)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		s.mu.Lock()
		ok := s.admins[cookie.Value]
		s.mu.Unlock()

		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// visitorSession returns the caller's visitor session id, minting a cookie on
// first contact.
func (s *Server) visitorSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(visitorCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}
