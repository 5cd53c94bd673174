package httputil

import (
	"context"
	"net/http"
)

type userIDKey struct{}

type requestIDKey struct{}

// WithUserID stores the authenticated user on the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))
}

// GetUserID returns the authenticated user, or "" when the request never
// passed the auth middleware
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey{}).(string)
	return userID
}

// WithRequestID tags the request context with a correlation ID
func WithRequestID(r *http.Request, requestID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))
}

// RequestID returns the correlation ID carried by ctx, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
