package models

import "github.com/golang-jwt/jwt/v5"

// RoleAuthenticated is the role Supabase puts in tokens of signed-in users
const RoleAuthenticated = "authenticated"

// SupabaseClaims represents the JWT claims structure from Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims                          // sub, iss, aud, exp, iat
	Email                string                 `json:"email"`
	AppMetadata          map[string]interface{} `json:"app_metadata"`
	UserMetadata         map[string]interface{} `json:"user_metadata"`
	Role                 string                 `json:"role"` // "authenticated" or "anon"
	SessionID            string                 `json:"session_id"`
	IsAnonymous          bool                   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the subject claim. Documents are owned by this ID.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}
