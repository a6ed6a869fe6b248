package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeEmailInUse         = "EMAIL_IN_USE"
	textCodeWeakPassword       = "WEAK_PASSWORD"
	textCodeNoIdentity         = "NO_AUTHENTICATED_IDENTITY"
	textCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	textCodeVerificationToken  = "INVALID_VERIFICATION_TOKEN"
)

// ErrInvalidCredentials is returned by providers for a failed credential
// check. The same error covers unknown emails and wrong passwords.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailInUse is returned when signup targets an already registered email.
var ErrEmailInUse = goerrors.New("an account already exists for this email", goerrors.CategoryConflict).
	WithTextCode(textCodeEmailInUse).
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is the provider-side password strength rejection.
var ErrWeakPassword = goerrors.New("password must be at least 6 characters long", goerrors.CategoryValidation).
	WithTextCode(textCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrNoIdentity is returned when an operation needs an authenticated
// identity and none is current.
var ErrNoIdentity = goerrors.New("no identity is currently authenticated", goerrors.CategoryAuth).
	WithTextCode(textCodeNoIdentity).
	WithCode(goerrors.CodeUnauthorized)

// ErrProfileNotFound is returned when no profile document exists for an
// authenticated identity's uid.
var ErrProfileNotFound = goerrors.New("no profile document for identity", goerrors.CategoryNotFound).
	WithTextCode(textCodeProfileNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrVerificationToken covers expired, malformed, and repurposed
// verification link tokens.
var ErrVerificationToken = goerrors.New("invalid or expired verification token", goerrors.CategoryAuth).
	WithTextCode(textCodeVerificationToken).
	WithCode(goerrors.CodeUnauthorized)

// IsValidationError reports whether err was raised by client-side
// validation. Validation errors are resolved locally and never reach the
// provider.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryValidation
	}
	return false
}

// IsProviderError reports whether err came back from the identity
// provider or document store rather than local validation.
func IsProviderError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category != goerrors.CategoryValidation
	}
	return true
}
