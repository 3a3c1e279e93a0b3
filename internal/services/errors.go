package services

import (
	"errors"
	"fmt"
)

// ===== NOT FOUND SENTINELS =====

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTeacherNotFound     = errors.New("teacher not found")
	ErrProfileNotFound     = errors.New("teacher profile not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrHomeworkNotFound    = errors.New("homework not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrFavoriteNotFound    = errors.New("favorite not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrPaymentNotFound     = errors.New("payment not found")
)

// ErrInvalidCredentials is returned by login when email or password is wrong.
// Deliberately indistinguishable between the two cases.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ===== CONFLICT =====

// ConflictError is the service translation of a duplicate-key violation.
// The message is the domain statement of the broken uniqueness rule.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsConflictError reports whether err carries a uniqueness conflict.
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ===== PERMISSION =====

// PermissionError is returned when the actor may not perform the operation.
type PermissionError struct {
	UserID   string
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s %s", e.UserID, e.Action, e.Resource)
}

func NewPermissionError(userID, action, resource string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Action:   action,
		Resource: resource,
	}
}

// IsPermissionError reports whether err is a permission denial.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// ===== BUSINESS RULES =====

// BusinessRuleError is returned when an operation is well-formed but
// violates a domain rule.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, format string, args ...interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsBusinessRuleError reports whether err is a domain rule violation.
func IsBusinessRuleError(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
