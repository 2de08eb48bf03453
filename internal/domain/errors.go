package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrUsernameTaken(username string) *Error {
	return WithMeta(New(KindValidation, "username_taken", fmt.Sprintf("Username '%s' already exists", username)), map[string]string{
		"field": "username",
	})
}

func ErrScrumMasterExists() *Error {
	return New(KindValidation, "scrum_master_exists", "A Scrum Master already exists")
}

func ErrUnknownAssignee(id string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "assigned user does not exist"), map[string]string{
		"field": "assigned_to",
		"id":    id,
	})
}

func ErrUnsupportedLanguage(lang string) *Error {
	return WithMeta(New(KindValidation, "unsupported_language", "Only Python is supported"), map[string]string{
		"language": lang,
	})
}

// ErrCouldNotScheduleMeeting keeps the underlying failure visible to the caller.
// Domain causes contribute only their client-safe message.
func ErrCouldNotScheduleMeeting(cause error) *Error {
	e := Wrap(KindValidation, "could_not_schedule_meeting", "could not schedule meeting", cause)
	if cause != nil {
		detail := cause.Error()
		var de *Error
		if errors.As(cause, &de) {
			detail = de.Message
		}
		e.Meta = map[string]string{"detail": detail}
	}
	return e
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for login failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid username or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

func ErrRefreshTokenInvalid() *Error {
	return New(KindAuth, "refresh_token_invalid", "invalid refresh token")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "You do not have permission to perform this action.")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrEmployeeNotFound() *Error {
	return New(KindNotFound, "employee_not_found", "Employee not found")
}

func ErrTaskNotFound() *Error {
	return New(KindNotFound, "task_not_found", "task not found")
}

func ErrMeetingNotFound() *Error {
	return New(KindNotFound, "meeting_not_found", "meeting not found")
}

// ----------------------
// Rate limiting (429)
// ----------------------

func ErrRateLimited() *Error {
	return New(KindRateLimited, "rate_limited", "too many requests")
}

func ErrExecutionBusy() *Error {
	return New(KindRateLimited, "execution_busy", "too many concurrent executions, try again")
}

// ----------------------
// Infrastructure (503)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrCacheUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "cache_unavailable", "cache unavailable", cause)
}

// ----------------------
// Internal (500)
// ----------------------

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "failed to process password", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "failed to sign token", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
