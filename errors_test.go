package auth_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/campusconnect/go-campus-auth"
)

func TestIsValidationError(t *testing.T) {
	assert.True(t, auth.IsValidationError(auth.ErrWeakPassword))
	assert.False(t, auth.IsValidationError(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsValidationError(errors.New("plain")))
	assert.False(t, auth.IsValidationError(nil))
}

func TestIsProviderError(t *testing.T) {
	assert.True(t, auth.IsProviderError(auth.ErrInvalidCredentials))
	assert.True(t, auth.IsProviderError(auth.ErrEmailInUse))
	assert.True(t, auth.IsProviderError(errors.New("network down")))
	assert.False(t, auth.IsProviderError(auth.ErrWeakPassword))
	assert.False(t, auth.IsProviderError(nil))
}

func TestProfileNotFoundIsNotFound(t *testing.T) {
	assert.True(t, goerrors.IsNotFound(auth.ErrProfileNotFound))

	wrapped := auth.ErrProfileNotFound.WithMetadata(map[string]any{"uid": "abc"})
	assert.True(t, goerrors.IsNotFound(wrapped))
}

func TestSentinelCategories(t *testing.T) {
	tests := []struct {
		err      error
		category goerrors.Category
	}{
		{auth.ErrInvalidCredentials, goerrors.CategoryAuth},
		{auth.ErrEmailInUse, goerrors.CategoryConflict},
		{auth.ErrWeakPassword, goerrors.CategoryValidation},
		{auth.ErrNoIdentity, goerrors.CategoryAuth},
		{auth.ErrProfileNotFound, goerrors.CategoryNotFound},
		{auth.ErrVerificationToken, goerrors.CategoryAuth},
	}

	for _, tt := range tests {
		var rich *goerrors.Error
		assert.True(t, goerrors.As(tt.err, &rich))
		assert.Equal(t, tt.category, rich.Category, "%v", tt.err)
	}
}
