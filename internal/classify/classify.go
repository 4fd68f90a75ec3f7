// Package classify maps transport outcomes to domain errors. The mapping is
// total: every status/transport-failure combination yields exactly one
// DomainError, and unmatched statuses fall through to Unknown.
package classify

import (
	"encoding/json"
	"net/http"
	"strings"

	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"
)

// Context disambiguates the wording of a classified error.
type Context string

// Operation contexts.
const (
	ContextClaim       Context = "claim"
	ContextLogin       Context = "login"
	ContextListCoupons Context = "listCoupons"
	ContextAddCoupon   Context = "addCoupon"
	ContextToggle      Context = "toggleCoupon"
)

// Error classifies a failed outcome. err is the transport failure, if any;
// resp is consulted only when err is nil. The server's own message, when the
// body carries one, is preferred verbatim.
func Error(resp *transport.Response, err error, op Context) *model.DomainError {
	if err != nil || resp == nil {
		return &model.DomainError{
			Tag:       model.TagUnknown,
			Title:     "Error",
			Message:   fallbackMessage(op),
			Detail:    "A network problem prevented the request from completing.",
			RetryHint: "Check your connection and try again.",
		}
	}

	msg := serverMessage(resp.Body)

	switch {
	case resp.Status == http.StatusTooManyRequests:
		return rateLimited(msg)

	case resp.Status == http.StatusNotFound:
		return notFound(msg, op)

	case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden:
		return unauthorized(msg, op)

	case resp.Status >= 500:
		return &model.DomainError{
			Tag:       model.TagServerError,
			Title:     "Server Error",
			Message:   "Our servers are experiencing issues. Please try again in a few minutes.",
			RetryHint: "If the problem persists, contact our support team at support@example.com",
		}

	case resp.Status >= 400:
		return validation(msg, op)

	default:
		return model.NewDomainError(model.TagUnknown, "Error", orDefault(msg, fallbackMessage(op)))
	}
}

// Malformed reports a nominal-success response whose body could not be
// decoded. Treated as a server error by defensive default.
func Malformed(op Context) *model.DomainError {
	return &model.DomainError{
		Tag:       model.TagServerError,
		Title:     "Server Error",
		Message:   fallbackMessage(op),
		Detail:    "The server returned an unreadable response.",
		RetryHint: "Please try again in a few minutes.",
	}
}

func rateLimited(msg string) *model.DomainError {
	base := orDefault(msg, "Rate limit exceeded")

	// The server phrases IP-window restrictions in hours; anything else is a
	// per-session restriction.
	if strings.Contains(base, "hours") {
		return &model.DomainError{
			Tag:       model.TagRateLimited,
			Title:     "Rate Limit Exceeded",
			Message:   base,
			Detail:    "Our system prevents excessive requests to ensure fair distribution.",
			RetryHint: "Try again in the time specified. Each IP address is limited to one coupon per day.",
		}
	}

	return &model.DomainError{
		Tag:       model.TagRateLimited,
		Title:     "Rate Limit Exceeded",
		Message:   base,
		Detail:    "Each browser session is limited to one coupon per day.",
		RetryHint: "Try using a different browser or device if you need another coupon.",
	}
}

func notFound(msg string, op Context) *model.DomainError {
	if op == ContextClaim {
		return &model.DomainError{
			Tag:       model.TagNotFound,
			Title:     "No Coupons Available",
			Message:   "All coupons have been claimed for now. Please check back later.",
			RetryHint: "Our admin will add more coupons soon. Check back in a few hours.",
		}
	}

	return model.NewDomainError(model.TagNotFound, "Not Found", orDefault(msg, fallbackMessage(op)))
}

func unauthorized(msg string, op Context) *model.DomainError {
	if op == ContextLogin {
		return model.NewDomainError(model.TagUnauthorized, "Login failed", orDefault(msg, "Login failed"))
	}

	return &model.DomainError{
		Tag:       model.TagUnauthorized,
		Title:     "Session expired",
		Message:   orDefault(msg, "Your admin session has expired. Please log in again."),
		RetryHint: "Log in again to continue.",
	}
}

func validation(msg string, op Context) *model.DomainError {
	if op == ContextAddCoupon {
		return &model.DomainError{
			Tag:       model.TagValidation,
			Title:     "Failed to add coupon",
			Message:   orDefault(msg, "The code may already exist or be invalid."),
			RetryHint: "Try a different coupon code or check if it already exists.",
		}
	}

	return model.NewDomainError(model.TagValidation, "Request Failed", orDefault(msg, fallbackMessage(op)))
}

// fallbackMessage is the per-context wording used when the server supplied
// no message of its own.
func fallbackMessage(op Context) string {
	switch op {
	case ContextClaim:
		return "Error claiming coupon"
	case ContextLogin:
		return "Login failed"
	case ContextListCoupons:
		return "Failed to load coupons. Please check your network connection and try again."
	case ContextAddCoupon:
		return "Failed to add coupon"
	case ContextToggle:
		return "The server could not process your request. Please try again or check your connection."
	default:
		return "The request could not be completed"
	}
}

// serverMessage extracts the human-readable message the server may attach to
// an error body. Returns "" for absent, empty, or malformed bodies.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return payload.Message
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
