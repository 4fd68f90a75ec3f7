package model

// Error tags for classified failures.
const (
	TagRateLimited  = "RATE_LIMITED"
	TagNotFound     = "NOT_FOUND"
	TagServerError  = "SERVER_ERROR"
	TagUnauthorized = "UNAUTHORIZED"
	TagValidation   = "VALIDATION"
	TagUnknown      = "UNKNOWN"
)

// DomainError is the typed representation of a failed operation, decoupled
// from raw transport status codes. It is constructed once per failed outcome
// and discarded when its owning workflow leaves the failure state.
type DomainError struct {
	Tag       string
	Title     string
	Message   string
	Detail    string
	RetryHint string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(tag, title, message string) *DomainError {
	return &DomainError{
		Tag:     tag,
		Title:   title,
		Message: message,
	}
}
