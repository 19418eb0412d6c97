package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies bearer tokens for connector calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = 5 * time.Minute

// SignedTokenSource mints HS256 tokens identifying the bot app and caches them until
// shortly before they expire.
type SignedTokenSource struct {
	appID  string
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewSignedTokenSource builds a token source for appID.
func NewSignedTokenSource(appID, secret string, ttl time.Duration) *SignedTokenSource {
	if ttl <= refreshMargin {
		ttl = time.Hour
	}
	return &SignedTokenSource{appID: appID, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Token returns a cached token or mints a new one.
func (s *SignedTokenSource) Token(ctx context.Context) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("connector secret not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(refreshMargin).Before(s.expiresAt) {
		return s.token, nil
	}

	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.appID,
		Subject:   s.appID,
		Audience:  jwt.ClaimStrings{"connector"},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}
