package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(testSecret))
	r.GET("/me", func(c *gin.Context) {
		id, ok := RequesterID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	})
	return r
}

func TestJWTAuthMiddlewareAcceptsBearer(t *testing.T) {
	token, err := GenerateJWT(42, "a@example.com", "user", time.Minute, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newAuthRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "42" {
		t.Fatalf("expected 200/42, got %d/%s", w.Code, w.Body.String())
	}
}

func TestJWTAuthMiddlewareAcceptsCookie(t *testing.T) {
	token, err := GenerateJWT(7, "", "", time.Minute, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	newAuthRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "7" {
		t.Fatalf("expected 200/7, got %d/%s", w.Code, w.Body.String())
	}
}

func TestJWTAuthMiddlewareRejects(t *testing.T) {
	expired, err := GenerateJWT(1, "", "", -time.Minute, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	foreign, err := GenerateJWT(1, "", "", time.Minute, []byte("other"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cases := map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"expired": "Bearer " + expired,
		"foreign": "Bearer " + foreign,
	}
	for name, header := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		newAuthRouter().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
	}
}

func TestValidateJWTRejectsMissingUser(t *testing.T) {
	token, err := GenerateJWT(0, "", "", time.Minute, testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(token, testSecret); err != ErrInvalidJWT {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}
