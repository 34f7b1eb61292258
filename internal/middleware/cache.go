package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of every response in the group. Auth, captcha and
// roster data are all per-session.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
