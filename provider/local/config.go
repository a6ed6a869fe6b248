package local

import (
	"golang.org/x/crypto/bcrypt"

	auth "github.com/campusconnect/go-campus-auth"
)

// Config holds local provider configuration.
type Config struct {
	// SigningKey signs emailed verification link tokens.
	SigningKey string

	// Issuer is stamped on verification tokens and checked back at
	// validation (optional).
	Issuer string

	// VerificationTokenExpiration is the verification link lifetime in
	// hours. Default: 24.
	VerificationTokenExpiration int

	// VerificationBaseURL is the page the emailed link lands on; the
	// token is appended as a query parameter.
	// Default: "http://localhost:3000/verify-email".
	VerificationBaseURL string

	// PasswordCost is the bcrypt cost used when hashing new passwords.
	// Default: bcrypt.DefaultCost. Tests lower it to keep signup fast.
	PasswordCost int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(signingKey string) Config {
	return Config{
		SigningKey:                  signingKey,
		Issuer:                      "campus-auth",
		VerificationTokenExpiration: 24,
		VerificationBaseURL:         "http://localhost:3000/verify-email",
		PasswordCost:                bcrypt.DefaultCost,
	}
}

var _ auth.Config = Config{}

func (c Config) GetSigningKey() string {
	return c.SigningKey
}

func (c Config) GetIssuer() string {
	return c.Issuer
}

func (c Config) GetVerificationTokenExpiration() int {
	if c.VerificationTokenExpiration <= 0 {
		return 24
	}
	return c.VerificationTokenExpiration
}

func (c Config) GetVerificationBaseURL() string {
	if c.VerificationBaseURL == "" {
		return "http://localhost:3000/verify-email"
	}
	return c.VerificationBaseURL
}

func (c Config) passwordCost() int {
	if c.PasswordCost <= 0 {
		return bcrypt.DefaultCost
	}
	return c.PasswordCost
}
