package session

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/directorstracker/tracker-server/internal/id"
)

const (
	tokenIssuer   = "tracker-server"
	tokenAudience = "tracker-dashboard"

	keyBytesSize = 32

	defaultTokenTTL = 30 * time.Minute
)

// CookieName is the cookie carrying the sealed session id.
const CookieName = "tracker_session"

// Sealer seals session ids into PASETO v4.local tokens so clients cannot
// forge or enumerate them.
type Sealer struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
}

// NewSealer creates a sealer whose tokens expire after ttl. An empty key
// generates a random one, which invalidates every cookie on restart; sessions
// are in-memory anyway.
func NewSealer(key []byte, ttl time.Duration) (*Sealer, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if len(key) == 0 {
		return &Sealer{key: paseto.NewV4SymmetricKey(), ttl: ttl}, nil
	}
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("session key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}

	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &Sealer{key: k, ttl: ttl}, nil
}

// Seal encrypts sessionID into a token valid for the sealer TTL. Callers
// reseal on every request so the expiry slides with activity.
func (s *Sealer) Seal(sessionID string) string {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(sessionID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))

	return token.V4Encrypt(s.key, nil)
}

// Open decrypts a token and returns the session id it carries.
func (s *Sealer) Open(tokenString string) (string, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	sessionID, err := token.GetSubject()
	if err != nil {
		return "", fmt.Errorf("session token has no subject: %w", err)
	}
	if !id.HasPrefix(sessionID, id.SessionPrefix) {
		return "", fmt.Errorf("session token carries %q, not a session id", sessionID)
	}
	return sessionID, nil
}

// TTL returns how long a sealed token stays valid.
func (s *Sealer) TTL() time.Duration {
	return s.ttl
}
