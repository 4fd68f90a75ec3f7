package model

// Coupon represents one coupon in the admin roster, as returned by the
// distribution service. The client never mutates ClaimedBy; only its length
// is displayed.
type Coupon struct {
	ID        string   `json:"_id"`
	Code      string   `json:"code"`
	IsActive  bool     `json:"isActive"`
	ClaimedBy []string `json:"claimedBy"`
}

// ClaimResult is the payload of a successful claim.
type ClaimResult struct {
	Code string `json:"code"`
}

// CreateCouponRequest is the payload for adding a coupon.
type CreateCouponRequest struct {
	Code string `json:"code"`
}

// LoginRequest is the payload for an admin login attempt. Both fields are
// always submitted as-is; validation is the server's job.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
