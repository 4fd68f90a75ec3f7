package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"coupon-desk/internal/classify"
	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"

	"github.com/rs/zerolog"
)

// RosterConfig holds the auto-dismiss window for roster action notices.
type RosterConfig struct {
	NoticeWindow time.Duration
}

// DefaultRosterConfig returns the default roster configuration.
func DefaultRosterConfig() RosterConfig {
	return RosterConfig{NoticeWindow: 5 * time.Second}
}

// RosterSnapshot is a read-only view of the roster workflow state.
type RosterSnapshot struct {
	// Coupons is the local snapshot, in server response order. It is wholly
	// replaced on every successful refresh; no merging or diffing.
	Coupons []model.Coupon

	// Loaded reports whether at least one refresh has succeeded, so callers
	// can tell "empty roster" apart from "never fetched".
	Loaded bool

	// LoadErr is the roster-level fetch error. Distinct from the action error
	// notice; the stale snapshot stays visible alongside it.
	LoadErr *model.DomainError

	Refreshing bool
	Adding     bool
	Toggling   bool

	DialogOpen bool
	Draft      string

	// Success and Error are the live action notices, at most one of each.
	Success *model.Notice
	Error   *model.Notice
}

// Roster drives the admin list/create/toggle interactions over one shared
// coupon snapshot. The three operations are independently pending.
type Roster struct {
	sender transport.Sender
	cfg    RosterConfig
	logger zerolog.Logger

	mu         sync.Mutex
	coupons    []model.Coupon
	loaded     bool
	loadErr    *model.DomainError
	refreshing bool
	adding     bool
	toggling   bool
	dialogOpen bool
	draft      string

	success      *model.Notice
	errNotice    *model.Notice
	successTimer *time.Timer
	errorTimer   *time.Timer
	successGen   uint64
	errorGen     uint64
}

// NewRoster creates a roster workflow. A zero-valued cfg falls back to the
// defaults.
func NewRoster(sender transport.Sender, cfg RosterConfig, logger zerolog.Logger) *Roster {
	if cfg.NoticeWindow <= 0 {
		cfg = DefaultRosterConfig()
	}

	return &Roster{
		sender: sender,
		cfg:    cfg,
		logger: logger.With().Str("workflow", "roster").Logger(),
	}
}

// Refresh fetches the coupon list and replaces the snapshot wholesale.
// Returns false without issuing anything if a refresh is already in flight.
// On failure the snapshot is left untouched and LoadErr is set.
func (r *Roster) Refresh(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Roster) refreshLocked(ctx context.Context) bool {
	if r.refreshing {
		return false
	}
	r.refreshing = true
	go r.runRefresh(ctx)
	return true
}

func (r *Roster) runRefresh(ctx context.Context) {
	resp, err := r.sender.Send(ctx, http.MethodGet, "/api/admin/coupons", nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshing = false

	if err != nil || resp.Status >= 400 {
		r.loadErr = classify.Error(resp, err, classify.ContextListCoupons)
		r.logger.Warn().Str("tag", r.loadErr.Tag).Msg("failed to load coupons")
		return
	}

	coupons := []model.Coupon{}
	if jsonErr := json.Unmarshal(resp.Body, &coupons); jsonErr != nil {
		r.loadErr = classify.Malformed(classify.ContextListCoupons)
		r.logger.Warn().Err(jsonErr).Msg("coupon list body was unreadable")
		return
	}

	r.coupons = coupons
	r.loaded = true
	r.loadErr = nil
	r.logger.Debug().Int("count", len(coupons)).Msg("roster refreshed")
}

// Add creates a coupon with the given code. Codes that are empty after
// trimming are rejected locally and no request is sent. On success the
// creation dialog closes, the draft is cleared, the roster refreshes and a
// timed success notice appears; on failure the draft is left untouched so the
// admin can correct and resubmit.
func (r *Roster) Add(ctx context.Context, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	r.mu.Lock()
	if r.adding {
		r.mu.Unlock()
		return false
	}
	r.adding = true
	r.mu.Unlock()

	go r.runAdd(ctx, code)
	return true
}

func (r *Roster) runAdd(ctx context.Context, code string) {
	resp, err := r.sender.Send(ctx, http.MethodPost, "/api/admin/coupons", model.CreateCouponRequest{Code: code})

	r.mu.Lock()
	r.adding = false

	if err != nil || resp.Status >= 400 {
		derr := classify.Error(resp, err, classify.ContextAddCoupon)
		r.setErrorLocked(model.ErrorNotice(derr))
		r.mu.Unlock()
		r.logger.Warn().Str("code", code).Str("tag", derr.Tag).Msg("failed to add coupon")
		return
	}

	r.dialogOpen = false
	r.draft = ""
	r.setSuccessLocked(model.SuccessNotice("Success", fmt.Sprintf("Coupon %q was added successfully!", code)))
	// Refresh becomes pending before the add is observed as settled.
	r.refreshLocked(ctx)
	r.mu.Unlock()

	r.logger.Info().Str("code", code).Msg("coupon added")
}

// Toggle flips the active status of the coupon with the given id. current is
// the pre-toggle status; the success notice is phrased with the status the
// toggle produces, the failure notice with the action that was attempted.
func (r *Roster) Toggle(ctx context.Context, id, code string, current bool) bool {
	r.mu.Lock()
	if r.toggling {
		r.mu.Unlock()
		return false
	}
	r.toggling = true
	r.mu.Unlock()

	go r.runToggle(ctx, id, code, current)
	return true
}

func (r *Roster) runToggle(ctx context.Context, id, code string, current bool) {
	path := fmt.Sprintf("/api/admin/coupons/%s/toggle", id)
	resp, err := r.sender.Send(ctx, http.MethodPatch, path, nil)

	// Disabling an active coupon, enabling an inactive one.
	action, result := "enable", "enabled"
	if current {
		action, result = "disable", "disabled"
	}

	r.mu.Lock()
	r.toggling = false

	if err != nil || resp.Status >= 400 {
		derr := classify.Error(resp, err, classify.ContextToggle)
		r.setErrorLocked(&model.Notice{
			Severity: model.SeverityError,
			Title:    fmt.Sprintf("Failed to %s coupon", action),
			Message:  derr.Message,
			Detail:   derr.Detail,
			Hint:     derr.RetryHint,
		})
		r.mu.Unlock()
		r.logger.Warn().Str("id", id).Str("tag", derr.Tag).Msg("failed to toggle coupon")
		return
	}

	r.setSuccessLocked(model.SuccessNotice("Success", fmt.Sprintf("Coupon %q was %s successfully!", code, result)))
	r.refreshLocked(ctx)
	r.mu.Unlock()

	r.logger.Info().Str("id", id).Str("result", result).Msg("coupon toggled")
}

// OpenDialog opens the coupon creation dialog.
func (r *Roster) OpenDialog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogOpen = true
}

// CloseDialog closes the creation dialog without clearing the draft.
func (r *Roster) CloseDialog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogOpen = false
}

// SetDraft records the in-progress coupon code input.
func (r *Roster) SetDraft(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = code
}

// DismissSuccess clears the success notice immediately.
func (r *Roster) DismissSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearSuccessLocked()
}

// DismissError clears the action error notice immediately.
func (r *Roster) DismissError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearErrorLocked()
}

// Snapshot returns a read-only copy of the current state. The coupon slice is
// copied so observers never alias the workflow's cell.
func (r *Roster) Snapshot() RosterSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupons := make([]model.Coupon, len(r.coupons))
	copy(coupons, r.coupons)

	return RosterSnapshot{
		Coupons:    coupons,
		Loaded:     r.loaded,
		LoadErr:    r.loadErr,
		Refreshing: r.refreshing,
		Adding:     r.adding,
		Toggling:   r.toggling,
		DialogOpen: r.dialogOpen,
		Draft:      r.draft,
		Success:    r.success,
		Error:      r.errNotice,
	}
}

// Close stops the notice timers so a discarded workflow never fires a stale
// dismiss.
func (r *Roster) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearSuccessLocked()
	r.clearErrorLocked()
}

// setSuccessLocked replaces the live success notice. The previous notice's
// timer is superseded regardless of how much of its window remains.
func (r *Roster) setSuccessLocked(n *model.Notice) {
	r.clearSuccessLocked()
	r.success = n
	gen := r.successGen
	r.successTimer = time.AfterFunc(r.cfg.NoticeWindow, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.successGen == gen {
			r.success = nil
			r.successTimer = nil
		}
	})
}

func (r *Roster) setErrorLocked(n *model.Notice) {
	r.clearErrorLocked()
	r.errNotice = n
	gen := r.errorGen
	r.errorTimer = time.AfterFunc(r.cfg.NoticeWindow, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.errorGen == gen {
			r.errNotice = nil
			r.errorTimer = nil
		}
	})
}

func (r *Roster) clearSuccessLocked() {
	r.successGen++
	if r.successTimer != nil {
		r.successTimer.Stop()
		r.successTimer = nil
	}
	r.success = nil
}

func (r *Roster) clearErrorLocked() {
	r.errorGen++
	if r.errorTimer != nil {
		r.errorTimer.Stop()
		r.errorTimer = nil
	}
	r.errNotice = nil
}
