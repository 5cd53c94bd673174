package auth

import "smartdoc/internal/domain/models"

// JWTVerifier verifies bearer tokens for the HTTP middleware.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns its claims.
	// Invalid, expired or anonymous tokens yield an UnauthorizedError.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases resources held by the verifier
	Close() error
}
