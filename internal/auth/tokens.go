package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/inkpress/internal/apperr"
)

// Session is the authenticated identity carried by a bearer token.
type Session struct {
	AccountID uint
	TokenID   string
	ExpiresAt time.Time
}

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for accountID. The embedded token id lets logout
// revoke one token without touching the account's other sessions.
func (m *TokenManager) Issue(accountID uint) (string, Session, error) {
	now := m.now().UTC()
	sess := Session{
		AccountID: accountID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   strconv.FormatUint(uint64(accountID), 10),
		ID:        sess.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, sess, nil
}

// Verify parses and validates a bearer token and returns its session.
func (m *TokenManager) Verify(token string) (Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.CodeUnauthorized, "invalid token", err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Session{}, apperr.New(apperr.CodeUnauthorized, "invalid token subject")
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return Session{}, apperr.New(apperr.CodeUnauthorized, "malformed token claims")
	}
	return Session{AccountID: uint(id), TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
