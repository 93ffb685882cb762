package service

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrResultNotFound      = errors.New("result not found")
	ErrCheatingLogNotFound = errors.New("cheating log not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")

	ErrEmailTaken          = errors.New("email already registered")
	ErrRollTaken           = errors.New("roll number already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountBlocked      = errors.New("account blocked for repeated malpractice, contact a teacher")
	ErrDuplicateAssignment = errors.New("exam already assigned to this student")
	ErrInvalidExamWindow   = errors.New("exam live time must precede dead time")
	ErrInvalidQuestion     = errors.New("invalid question payload")
	ErrInvalidAccessCode   = errors.New("invalid access code")
	ErrForbidden           = errors.New("insufficient permissions")

	// ErrCodeExecution wraps failures of the code-execution collaborator.
	// It surfaces as a grading error distinct from an incorrect answer.
	ErrCodeExecution = errors.New("code execution failed")
)

// AccessReason distinguishes why the access gate denied a request.
type AccessReason string

// Access denial reasons, in gate evaluation order.
const (
	AccessNotFound            AccessReason = "NotFound"
	AccessNotStarted          AccessReason = "NotStarted"
	AccessWindowClosed        AccessReason = "WindowClosed"
	AccessCodeRequired        AccessReason = "AccessCodeRequired"
	AccessNotAssigned         AccessReason = "NotAssigned"
	AccessAttemptLimitReached AccessReason = "AttemptLimitReached"
)

// AccessError is the typed denial returned by the access gate. Handlers map
// the reason to a user-visible message and status code.
type AccessError struct {
	Reason AccessReason
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// DenyAccess builds an AccessError for the given reason.
func DenyAccess(reason AccessReason) error {
	return &AccessError{Reason: reason}
}

// AsAccessError unwraps an AccessError if err carries one.
func AsAccessError(err error) (*AccessError, bool) {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr, true
	}
	return nil, false
}
