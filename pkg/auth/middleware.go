package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"frameworks/herald/pkg/ctxkeys"
)

// JWTAuthMiddleware accepts a bearer token or the access_token cookie and
// stores the requester id on the gin context.
func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cookieToken, err := c.Cookie("access_token"); err == nil && cookieToken != "" {
				header = "Bearer " + cookieToken
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization header"})
				return
			}
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		claims, err := ValidateJWT(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(string(ctxkeys.KeyRequesterID), claims.UserID)
		c.Set(string(ctxkeys.KeyEmail), claims.Email)
		c.Set(string(ctxkeys.KeyRole), claims.Role)
		c.Set(string(ctxkeys.KeyAuthType), "jwt")
		c.Next()
	}
}

// RequesterID returns the authenticated requester id set by JWTAuthMiddleware.
func RequesterID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(string(ctxkeys.KeyRequesterID))
	if !ok {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok && id > 0
}
