package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const verificationPurpose = "email_verification"

type verificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// VerificationSigner issues and checks the HS256 tokens carried by email
// verification links. A token is bound to the address it was sent to.
type VerificationSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewVerificationSigner(secret string, ttl time.Duration) *VerificationSigner {
	return &VerificationSigner{secret: []byte(secret), ttl: ttl}
}

func (s *VerificationSigner) Sign(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, verificationClaims{
		Email:   email,
		Purpose: verificationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}
	return signed, nil
}

// Parse returns the user id and email a valid token was issued for.
func (s *VerificationSigner) Parse(raw string) (string, string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &verificationClaims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*verificationClaims)
	if !ok || !parsed.Valid || claims.Purpose != verificationPurpose || claims.Subject == "" {
		return "", "", models.ErrInvalidToken
	}
	return claims.Subject, claims.Email, nil
}
