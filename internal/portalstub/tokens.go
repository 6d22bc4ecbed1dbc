// ABOUTME: HS256 access-token minting and verification for the stub backend
// ABOUTME: Tokens carry a generation so tests can invalidate all of them at once

package portalstub

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims are the claims of a stub access token
type accessClaims struct {
	Email      string `json:"email"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	generation atomic.Int64
}

func newTokenIssuer(secret []byte, ttl time.Duration) *tokenIssuer {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
	}
	return &tokenIssuer{secret: secret, ttl: ttl}
}

func (t *tokenIssuer) mint(userID, email string) (string, error) {
	now := time.Now()
	claims := &accessClaims{
		Email:      email,
		Generation: t.generation.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *tokenIssuer) verify(tokenString string) (*accessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Generation != t.generation.Load() {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

func (t *tokenIssuer) expireAll() {
	t.generation.Add(1)
}

// opaqueToken returns a random URL-safe refresh token
func opaqueToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
