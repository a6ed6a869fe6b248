package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Unsubscribe cancels a subscription. The first call stops future
// notifications and releases provider resources; later calls are no-ops.
type Unsubscribe func()

// IdentityProvider wraps the external authentication service. Every
// operation may fail with a provider error (bad credentials, duplicate
// account, network) carried as a *errors.Error.
type IdentityProvider interface {
	// SignIn authenticates the given credentials and makes the resulting
	// identity current.
	SignIn(ctx context.Context, email, password string) (Identity, error)

	// SignUp creates an auth identity, persists the profile document in
	// the global and branch-scoped collections, then dispatches an email
	// verification message. If profile persistence fails after identity
	// creation the orphaned identity is left in place; callers see the
	// original error.
	SignUp(ctx context.Context, draft RegistrationDraft) (Identity, error)

	// SignOut invalidates the current identity.
	SignOut(ctx context.Context) error

	// SendVerificationEmail re-sends the verification message for the
	// currently authenticated identity.
	SendVerificationEmail(ctx context.Context) error

	// Subscribe fires once immediately with the current identity (nil
	// when signed out), then on every provider-level change.
	Subscribe(onChange func(*Identity)) Unsubscribe
}

// ProfileStore reads profile documents from the external document store,
// keyed by the identity's uid.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*Profile, error)
}

// Mailer delivers verification messages out of band.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// Config holds provider options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetVerificationTokenExpiration() int
	GetVerificationBaseURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
