package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"coupon-desk/internal/classify"
	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"

	"github.com/rs/zerolog"
)

// ClaimConfig holds the display windows for claim outcomes.
type ClaimConfig struct {
	// SuccessWindow is how long a successful claim stays visible before the
	// workflow returns to idle on its own.
	SuccessWindow time.Duration

	// FailureWindow is the same for failed claims.
	FailureWindow time.Duration
}

// DefaultClaimConfig returns the default claim configuration.
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		SuccessWindow: 15 * time.Second,
		FailureWindow: 8 * time.Second,
	}
}

// ClaimSnapshot is a read-only view of the claim workflow state.
type ClaimSnapshot struct {
	Phase  Phase
	Code   string             // set while Phase is PhaseSucceeded
	Err    *model.DomainError // set while Phase is PhaseFailed
	Notice *model.Notice      // derived banner for the current outcome, nil while idle/pending
}

// Claim drives the single-shot "claim a coupon" interaction:
// Idle → Pending → Succeeded/Failed → Idle (on dismiss or timeout).
type Claim struct {
	sender transport.Sender
	cfg    ClaimConfig
	logger zerolog.Logger

	mu      sync.Mutex
	phase   Phase
	code    string
	err     *model.DomainError
	notice  *model.Notice
	dismiss *time.Timer
	gen     uint64 // invalidates stale dismiss timers
}

// NewClaim creates a claim workflow. A zero-valued cfg falls back to the
// defaults.
func NewClaim(sender transport.Sender, cfg ClaimConfig, logger zerolog.Logger) *Claim {
	if cfg.SuccessWindow <= 0 {
		cfg.SuccessWindow = DefaultClaimConfig().SuccessWindow
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = DefaultClaimConfig().FailureWindow
	}

	return &Claim{
		sender: sender,
		cfg:    cfg,
		logger: logger.With().Str("workflow", "claim").Logger(),
	}
}

// Start issues exactly one claim request. Returns false without issuing
// anything if a claim is already pending. There is no implicit retry; the
// server owns the one-per-window rule and the workflow only surfaces its
// decision.
func (c *Claim) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.phase == PhasePending {
		c.mu.Unlock()
		return false
	}

	c.stopTimerLocked()
	c.phase = PhasePending
	c.code = ""
	c.err = nil
	c.notice = nil
	c.mu.Unlock()

	go c.run(ctx)
	return true
}

func (c *Claim) run(ctx context.Context) {
	resp, err := c.sender.Send(ctx, http.MethodPost, "/api/coupons/claim", nil)
	if err != nil || resp.Status >= 400 {
		c.fail(classify.Error(resp, err, classify.ContextClaim))
		return
	}

	var result model.ClaimResult
	if jsonErr := json.Unmarshal(resp.Body, &result); jsonErr != nil || result.Code == "" {
		c.fail(classify.Malformed(classify.ContextClaim))
		return
	}

	c.succeed(result.Code)
}

func (c *Claim) succeed(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = PhaseSucceeded
	c.code = code
	c.err = nil
	c.notice = &model.Notice{
		Severity: model.SeveritySuccess,
		Title:    "Success!",
		Message:  "Your exclusive coupon code is: " + code + ". Use it at checkout for your discount.",
		Hint:     "Make sure to save or copy this code before closing!",
	}
	c.scheduleResetLocked(c.cfg.SuccessWindow)

	c.logger.Info().Str("code", code).Msg("coupon claimed")
}

func (c *Claim) fail(derr *model.DomainError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = PhaseFailed
	c.code = ""
	c.err = derr
	c.notice = model.ErrorNotice(derr)
	c.scheduleResetLocked(c.cfg.FailureWindow)

	c.logger.Warn().Str("tag", derr.Tag).Str("message", derr.Message).Msg("claim failed")
}

// Dismiss clears the current outcome and returns the workflow to idle. A
// pending claim is unaffected.
func (c *Claim) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseSucceeded || c.phase == PhaseFailed {
		c.resetLocked()
	}
}

// IsPending reports whether a claim is in flight, so callers can disable
// re-entry.
func (c *Claim) IsPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhasePending
}

// Snapshot returns a read-only copy of the current state.
func (c *Claim) Snapshot() ClaimSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ClaimSnapshot{
		Phase:  c.phase,
		Code:   c.code,
		Err:    c.err,
		Notice: c.notice,
	}
}

// Close stops any scheduled auto-dismiss so a discarded workflow never fires
// a stale transition.
func (c *Claim) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Claim) scheduleResetLocked(window time.Duration) {
	c.stopTimerLocked()
	gen := c.gen
	c.dismiss = time.AfterFunc(window, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen && (c.phase == PhaseSucceeded || c.phase == PhaseFailed) {
			c.resetLocked()
		}
	})
}

func (c *Claim) resetLocked() {
	c.stopTimerLocked()
	c.phase = PhaseIdle
	c.code = ""
	c.err = nil
	c.notice = nil
}

func (c *Claim) stopTimerLocked() {
	c.gen++
	if c.dismiss != nil {
		c.dismiss.Stop()
		c.dismiss = nil
	}
}
