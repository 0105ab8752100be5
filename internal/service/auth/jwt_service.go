// Package auth validates the bearer tokens issued by the platform's identity
// layer. Tokens are HS256-signed JWTs carrying the user ID.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessTokenType is the "type" claim of tokens accepted by the API.
const AccessTokenType = "access"

// DefaultTokenLifetime is the lifetime of tokens minted by GenerateToken.
const DefaultTokenLifetime = time.Hour

// JWTService defines operations on JWT access tokens.
type JWTService interface {
	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, wrong token type, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateToken creates a signed access token for the user. The identity
	// layer normally issues tokens; this is used by tooling and tests.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// TokenType indicates the purpose of the token. Only "access" tokens are accepted.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
