package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-manual-backend/internal/auth"
)

// AdminAuth requires HTTP Basic credentials accepted by verifier.
func AdminAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials", "code": "UNAUTHORIZED"})
			return
		}
		if !verifier.Verify(username, password) {
			c.Header("WWW-Authenticate", `Basic realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "UNAUTHORIZED"})
			return
		}
		c.Next()
	}
}
