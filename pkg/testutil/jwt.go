// Package testutil holds helpers shared by handler tests.
package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"frameworks/herald/pkg/auth"
)

// JWTHelper mints tokens signed with Secret.
type JWTHelper struct {
	Secret []byte
}

func NewJWTHelper() *JWTHelper {
	return &JWTHelper{Secret: []byte("test-secret-for-unit-tests")}
}

// Token returns a valid bearer token for requesterID.
func (h *JWTHelper) Token(t testing.TB, requesterID int64) string {
	t.Helper()
	token, err := auth.GenerateJWT(requesterID, "user@example.com", "user", time.Hour, h.Secret)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	return token
}

// ExpiredToken returns a correctly signed token that expired an hour ago.
func (h *JWTHelper) ExpiredToken(t testing.TB, requesterID int64) string {
	t.Helper()
	claims := &auth.Claims{
		UserID: requesterID,
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.Secret)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return signed
}

// Bearer formats token for an Authorization header.
func Bearer(token string) string {
	return "Bearer " + token
}
