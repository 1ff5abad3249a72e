package middleware

import (
	"fmt"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// IssueToken signs an HS256 token for identity that AuthMiddleware accepts.
func IssueToken(identity domain.Identity, secret, issuer string, ttl time.Duration) (string, error) {
	if identity.UserID == "" || identity.SchoolID == "" {
		return "", fmt.Errorf("identity requires both user and school ids")
	}
	now := time.Now()
	claims := Claims{
		SchoolID: identity.SchoolID,
		Name:     identity.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
