package localgate

import "github.com/goliatone/go-errors"

const (
	textCodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	textCodeTokenInvalid     = "VERIFICATION_TOKEN_INVALID"
	textCodeTokenExpired     = "VERIFICATION_TOKEN_EXPIRED"
	textCodeSessionRevoked   = "SESSION_REVOKED"
	textCodeInvalidPhone     = "INVALID_PHONE_NUMBER"
)

// ErrEmailNotVerified is returned when a pending account tries to sign in
// before confirming its email.
var ErrEmailNotVerified = errors.New("email address has not been verified", errors.CategoryAuth).
	WithTextCode(textCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrVerificationTokenInvalid is returned for unknown or already-consumed
// confirmation tokens.
var ErrVerificationTokenInvalid = errors.New("verification token is invalid", errors.CategoryAuth).
	WithTextCode(textCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationTokenExpired is returned for expired confirmation tokens.
var ErrVerificationTokenExpired = errors.New("verification token has expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when a token validates but its session no
// longer exists in the registry.
var ErrSessionRevoked = errors.New("session has been revoked", errors.CategoryAuth).
	WithTextCode(textCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidPhone is returned when a profile update carries a phone number
// that does not parse for the given region.
var ErrInvalidPhone = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(textCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)
