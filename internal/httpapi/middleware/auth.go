package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/auth"
	"github.com/suPer8Hu/n8n-chat/internal/common"
	"github.com/suPer8Hu/n8n-chat/internal/log"
)

// UserIDKey holds the authenticated user id (uint64). It matches the log
// field so the request logger picks it up.
const UserIDKey = log.FieldUserID

func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(h, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			common.AbortFail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}

		uid, err := auth.ParseJWT(strings.TrimSpace(token), secret)
		if err != nil {
			common.AbortFail(c, http.StatusUnauthorized, 40102, "invalid token")
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the id set by AuthRequired.
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// OptionalAuth sets the user id when a valid token is present and lets the
// handler decide how to answer anonymous callers.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); found {
			if uid, err := auth.ParseJWT(strings.TrimSpace(token), secret); err == nil {
				c.Set(UserIDKey, uid)
			}
		}
		c.Next()
	}
}
