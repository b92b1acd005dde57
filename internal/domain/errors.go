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
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindUpstream       ErrKind = "upstream"       // 502
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
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

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

// ErrMissingCredential is returned when a required provider credential
// (code, access token, or signed payload) is absent from the request.
func ErrMissingCredential(name string) *Error {
	return WithMeta(New(KindValidation, "missing_credential", "required credential not provided"), map[string]string{
		"credential": name,
	})
}

func ErrUnsupportedProvider(name string) *Error {
	return WithMeta(New(KindValidation, "unsupported_provider", "unsupported provider"), map[string]string{
		"provider": name,
	})
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for login failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
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

// ErrSignatureMismatch is returned when a signed provider payload fails
// HMAC verification.
func ErrSignatureMismatch() *Error {
	return New(KindAuth, "signature_mismatch", "payload signature verification failed")
}

// ErrStalePayload is returned when a correctly signed provider payload is
// too old to accept.
func ErrStalePayload() *Error {
	return New(KindAuth, "stale_payload", "signed payload is too old")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrResetCodeNotFound() *Error {
	return New(KindNotFound, "reset_code_not_found", "confirmation code not found or expired")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

func ErrUsernameAlreadyExists() *Error {
	return New(KindConflict, "username_already_exists", "username already registered")
}

// ErrIdentityConflict is returned when an external identity collides with a
// different account's existing link.
func ErrIdentityConflict(p Provider) *Error {
	return WithMeta(New(KindConflict, "identity_conflict", "account already linked to a different external identity"), map[string]string{
		"provider": string(p),
	})
}

// ErrNotLinked is returned by unlink when the account has no link for the
// provider.
func ErrNotLinked(p Provider) *Error {
	return WithMeta(New(KindConflict, "not_linked", "no linked account for provider"), map[string]string{
		"provider": string(p),
	})
}

// ErrUniqueViolation wraps a storage-level duplicate-key failure. The
// resolver retries the read-decide-write sequence once when it sees this.
func ErrUniqueViolation(constraint string, cause error) *Error {
	return WithMeta(Wrap(KindConflict, "unique_violation", "duplicate value for unique field", cause), map[string]string{
		"constraint": constraint,
	})
}

// ----------------------
// Upstream provider errors (502)
// ----------------------

// ErrUpstreamAuth covers provider endpoint failures and malformed provider
// responses. Never retried inside the service.
func ErrUpstreamAuth(p Provider, cause error) *Error {
	return WithMeta(Wrap(KindUpstream, "upstream_auth_failed", "identity provider request failed", cause), map[string]string{
		"provider": string(p),
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "rabbit_unavailable", "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
