package middleware

import (
	"context"
	"net/http"

	"github.com/askvinny/agent-performance-backend/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionIDKey is the context key for session IDs
	SessionIDKey contextKey = "session_id"
	// SessionTokenHeader carries the signed session token both ways
	SessionTokenHeader = "X-Session-Token"
)

// Session is a middleware that attaches an anonymous session to every
// request. A valid inbound token keeps its session ID; anything else gets
// a fresh session. The signed token is echoed on the response so clients
// carry it forward, keeping each browser's selected week isolated.
func Session(sm *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""

			if token := r.Header.Get(SessionTokenHeader); token != "" {
				if claims, err := sm.ValidateToken(token); err == nil {
					sessionID = claims.SessionID
				}
			}

			if sessionID == "" {
				sessionID = sm.NewSessionID()
			}

			if token, err := sm.GenerateToken(sessionID); err == nil {
				w.Header().Set(SessionTokenHeader, token)
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
