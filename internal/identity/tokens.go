package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the user id of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Tokens issues and verifies HS256 session tokens. A revoked token stays
// rejected until it would have expired anyway.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now, revoked: make(map[string]time.Time)}
}

// WithClock replaces the clock used for issuing and validating.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue returns a signed token for userID and its expiry.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
	})
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

func (t *Tokens) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the user id of a valid, unrevoked token.
func (t *Tokens) Verify(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return "", fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// Revoke rejects tokenString from now on. Tokens that no longer verify
// need no revocation and return ErrInvalidToken.
func (t *Tokens) Revoke(tokenString string) error {
	claims, err := t.parse(tokenString)
	if err != nil {
		return err
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, exp := range t.revoked {
		if !exp.After(now) {
			delete(t.revoked, id)
		}
	}
	t.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

// Revoked reports how many unexpired tokens are currently revoked.
func (t *Tokens) Revoked() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, exp := range t.revoked {
		if exp.After(now) {
			n++
		}
	}
	return n
}
