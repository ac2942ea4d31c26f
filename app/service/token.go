package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/estagio-app/ms-go-auth/app/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is shared by access, refresh and reset tokens. Subject carries the
// principal id for access and refresh tokens and is empty on reset tokens.
type Claims struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) PrincipalID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return id, nil
}

type TokenCodecOption func(*TokenCodec)

// WithClock replaces the wall clock used for iat, exp and validation.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// TokenCodec signs and verifies HS256 tokens. The secret is passed per call
// so each token kind stays bound to its own key.
type TokenCodec struct {
	now func() time.Time
}

func NewTokenCodec(opts ...TokenCodecOption) *TokenCodec {
	codec := &TokenCodec{now: time.Now}
	for _, opt := range opts {
		opt(codec)
	}
	return codec
}

func (c *TokenCodec) Now() time.Time {
	return c.now()
}

func (c *TokenCodec) Sign(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(secret))
}

func (c *TokenCodec) Verify(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// DecodeUnverified reads the claims without checking the signature. The
// result only selects a flow; callers must Verify before trusting it.
func (c *TokenCodec) DecodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	return claims, nil
}

func (c *TokenCodec) Expired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}
