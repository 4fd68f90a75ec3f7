// Package workflow holds the client-side state machines that orchestrate one
// interaction type each: claiming a coupon, administering the roster, and
// logging in. Every workflow owns a single mutex-guarded state cell with
// exactly one writer (itself); observers read copies via Snapshot. Operations
// are non-blocking: the network call completes on a goroutine and the
// triggering call returns immediately.
package workflow

// Phase is the lifecycle position of a single-shot workflow.
type Phase int

// Workflow phases. Exactly one holds at any instant.
const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
