package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

// ===== EXAM ERRORS =====

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotPublished = errors.New("exam is not published")
	ErrQuestionNotFound = errors.New("question not found")
)

// ===== ELIGIBILITY ERRORS =====

var (
	ErrNotEligible = errors.New("student is not eligible for this exam")
	// ErrOutsideExamWindow is a NotEligible variant for starts before or after the scheduled window.
	ErrOutsideExamWindow = fmt.Errorf("%w: outside the exam window", ErrNotEligible)
)

// ===== ATTEMPT ERRORS =====

var (
	ErrAlreadyAttempted  = errors.New("exam already attempted")
	ErrDeadlineExpired   = errors.New("attempt deadline has passed")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptNotActive  = errors.New("attempt is not in progress")
	ErrQuestionNotInExam = errors.New("question is not part of this attempt")
	ErrInvalidAnswer     = errors.New("invalid answer option")
	ErrInvalidCause      = errors.New("invalid submit cause")
)

// ===== RESULT ERRORS =====

var (
	ErrResultNotPublished = errors.New("results are not published")
	ErrResultNotFound     = errors.New("result not found")
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidationFailed = errors.New("validation failed")
)

// PermissionError describes a refused action.
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) error {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ValidationErrors is the field-level error list produced by the validator package.
type ValidationErrors = validator.ValidationErrors

// IsValidationError reports whether err carries field-level or generic validation failures.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve) || errors.Is(err, ErrValidationFailed)
}
