package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims defines the structured data we store in the session JWT.
// Sessions are anonymous: the only identity they carry is the session ID
// keying the server-side week selection.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secretKey: []byte(secret), ttl: ttl}
}

// NewSessionID generates a fresh session identifier.
func (sm *SessionManager) NewSessionID() string {
	return uuid.NewString()
}

// GenerateToken creates a signed session token for the given session ID
func (sm *SessionManager) GenerateToken(sessionID string) (string, error) {
	expirationTime := time.Now().Add(sm.ttl)
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Subject:   sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secretKey)
}

// ValidateToken parses and validates the token string
func (sm *SessionManager) ValidateToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return sm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
