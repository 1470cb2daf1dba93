package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/common"
)

const HeaderChannelSecret = "X-Channel-Secret"

// ChannelSecretRequired guards server-to-server endpoints called by the n8n
// workflow. An empty secret disables them.
func ChannelSecretRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			common.AbortFail(c, http.StatusServiceUnavailable, 50301, "channel not configured")
			return
		}
		got := c.GetHeader(HeaderChannelSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			common.AbortFail(c, http.StatusUnauthorized, 40103, "invalid channel secret")
			return
		}
		c.Next()
	}
}
