package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// VerificationPurpose is the purpose claim carried by emailed
// verification link tokens. Tokens minted for any other purpose are
// rejected at validation.
const VerificationPurpose = "email.verify"

// VerificationClaims are the claims embedded in an emailed
// verification link.
type VerificationClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// VerificationTokenService mints and validates the single-purpose tokens
// embedded in verification emails.
type VerificationTokenService struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	logger          Logger
}

// NewVerificationTokenService creates a new VerificationTokenService
// instance. tokenExpiration is in hours.
func NewVerificationTokenService(signingKey []byte, tokenExpiration int, issuer string, logger Logger) *VerificationTokenService {
	if logger == nil {
		logger = defLogger{}
	}
	if tokenExpiration <= 0 {
		tokenExpiration = 24
	}
	return &VerificationTokenService{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		logger:          logger,
	}
}

// Mint signs a verification token for the given identity.
func (ts *VerificationTokenService) Mint(identity Identity) (string, error) {
	now := time.Now()
	claims := &VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UID:     identity.UID,
		Email:   identity.Email,
		Purpose: VerificationPurpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign verification token")
	}

	return signedString, nil
}

// Validate parses a token string and returns its claims. Expired,
// malformed, and wrong-purpose tokens all map to ErrVerificationToken.
func (ts *VerificationTokenService) Validate(tokenString string) (*VerificationClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("verification token has unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("verification token rejected: %v", err)
		return nil, ErrVerificationToken.WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, ErrVerificationToken
	}

	if claims.Purpose != VerificationPurpose || claims.UID == "" {
		return nil, ErrVerificationToken.WithMetadata(map[string]any{
			"purpose": claims.Purpose,
		})
	}

	return claims, nil
}
