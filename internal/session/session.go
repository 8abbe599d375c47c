// Package session issues and verifies the signed tokens clients hold. A token
// is a projection of the stored entitlement, never the source of truth.
package session

import (
	"context"
	"fmt"
	"time"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/access"
	"chilljobs-api/internal/domain/users"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is the gin context key the auth middleware stores *Claims under.
const ContextKey = "session"

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	IsPro  bool   `json:"is_pro"`
	jwt.RegisteredClaims
}

// UserLoader is the part of the store the projector reads from.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*users.User, error)
}

type Issuer struct {
	secret        []byte
	ttl           time.Duration
	enforceExpiry bool
	now           func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, enforceExpiry bool) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, enforceExpiry: enforceExpiry, now: time.Now}
}

func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Configured() bool {
	return len(i.secret) > 0
}

// Project copies the current entitlement of u into fresh claims.
func (i *Issuer) Project(u users.User) Claims {
	now := i.now()
	state := access.ComputeEffectiveAccessState(now, u, i.enforceExpiry)
	return Claims{
		UserID: u.ID,
		Email:  u.Email,
		IsPro:  state == access.AccessPro,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
}

func (i *Issuer) Issue(u users.User) (string, Claims, error) {
	if !i.Configured() {
		return "", Claims{}, apperr.New(apperr.Configuration, "AUTH_SECRET not configured")
	}
	claims := i.Project(u)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, apperr.E(apperr.Internal, "Could not create token", err)
	}
	return signed, claims, nil
}

// Refresh re-reads the user and reissues the token. This is the explicit
// update trigger clients call after checkout returns.
func (i *Issuer) Refresh(ctx context.Context, loader UserLoader, userID string) (string, Claims, error) {
	u, err := loader.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return "", Claims{}, apperr.E(apperr.Authentication, "User no longer exists", err)
		}
		return "", Claims{}, err
	}
	return i.Issue(*u)
}

func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	if !i.Configured() {
		return nil, apperr.New(apperr.Configuration, "AUTH_SECRET not configured")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, apperr.E(apperr.Authentication, "Invalid or expired token", err)
	}
	if claims.UserID == "" {
		return nil, apperr.New(apperr.Authentication, "Invalid token claims")
	}
	return &claims, nil
}
