package model

// Notice is a timed, user-visible banner produced by a workflow. Severity
// distinguishes the success and error notice slots; only one notice per
// severity is live at a time.
type Notice struct {
	Severity string // "success" or "error"
	Title    string
	Message  string
	Detail   string
	Hint     string
}

// Notice severities.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// SuccessNotice creates a success notice with the given title and message.
func SuccessNotice(title, message string) *Notice {
	return &Notice{Severity: SeveritySuccess, Title: title, Message: message}
}

// ErrorNotice creates an error notice from a classified failure.
func ErrorNotice(err *DomainError) *Notice {
	return &Notice{
		Severity: SeverityError,
		Title:    err.Title,
		Message:  err.Message,
		Detail:   err.Detail,
		Hint:     err.RetryHint,
	}
}
