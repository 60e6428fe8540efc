package session

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
	textCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	textCodeOAuthInitiation    = "OAUTH_INITIATION_FAILED"
	textCodeTransport          = "GATEWAY_TRANSPORT_FAILURE"
	textCodeNoIdentity         = "NO_IDENTITY"
	textCodeOperationInFlight  = "AUTH_OPERATION_IN_FLIGHT"
	textCodeStoreClosed        = "SESSION_STORE_CLOSED"
)

// ErrInvalidCredentials is returned when the gateway rejects an email and
// password pair. The message is what the UI renders verbatim.
var ErrInvalidCredentials = errors.New("Invalid login credentials", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateAccount is returned when an account already exists for the
// sign-up email.
var ErrDuplicateAccount = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(textCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrOAuthInitiation is returned when an OAuth redirect flow cannot start.
// Flows that start but fail later report through the session-changed push
// channel instead.
var ErrOAuthInitiation = errors.New("could not start OAuth flow", errors.CategoryAuth).
	WithTextCode(textCodeOAuthInitiation).
	WithCode(errors.CodeUnauthorized)

// ErrTransport wraps network or backend failures during a gateway call.
// The store surfaces it the same way as an auth rejection; the distinction
// matters to the gateway, not to session state.
var ErrTransport = errors.New("authentication service unavailable", errors.CategoryExternal).
	WithTextCode(textCodeTransport).
	WithCode(errors.CodeInternal)

// ErrNoIdentity is returned when an operation requires a resolved identity
// and none exists.
var ErrNoIdentity = errors.New("no identity in session", errors.CategoryAuth).
	WithTextCode(textCodeNoIdentity).
	WithCode(errors.CodeUnauthorized)

// ErrOperationInFlight is returned when a second auth operation starts
// while one is outstanding. Forms should disable their submit action while
// the store reports loading; this is the backstop for double-clicks.
var ErrOperationInFlight = errors.New("an authentication operation is already in progress", errors.CategoryConflict).
	WithTextCode(textCodeOperationInFlight).
	WithCode(errors.CodeConflict)

// ErrStoreClosed is returned when a transition is requested after Close.
var ErrStoreClosed = errors.New("session store is closed", errors.CategoryOperation).
	WithTextCode(textCodeStoreClosed).
	WithCode(errors.CodeInternal)

// IsAuthRejection reports whether err represents the gateway refusing
// credentials, as opposed to a transport failure.
func IsAuthRejection(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuth || richErr.Category == errors.CategoryConflict
	}
	return false
}

// IsTransportFailure reports whether err represents a network or backend
// failure rather than a credential rejection.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryExternal
	}
	return false
}

// userMessage flattens an operation error into the human-readable text the
// UI renders inline next to the form.
func userMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
