package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ConsoleKeyHeader carries the console access key.
const ConsoleKeyHeader = "X-Console-Key"

var compareKey = bcrypt.CompareHashAndPassword

// ConsoleKeyMiddleware checks the console access key against its bcrypt hash.
// The key may also be sent as a bearer token. Keys that matched once are
// remembered by digest so polling clients pay for bcrypt only on first use.
func ConsoleKeyMiddleware(keyHash string, logger *zap.Logger) gin.HandlerFunc {
	var accepted sync.Map

	return func(c *gin.Context) {
		key := c.GetHeader(ConsoleKeyHeader)
		if key == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing console key"})
			c.Abort()
			return
		}

		digest := sha256.Sum256([]byte(key))
		if _, ok := accepted.Load(digest); !ok {
			if err := compareKey([]byte(keyHash), []byte(key)); err != nil {
				logger.Warn("Rejected console key", zap.String("path", c.Request.URL.Path))
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid console key"})
				c.Abort()
				return
			}
			// Only matching keys are stored.
			accepted.Store(digest, struct{}{})
		}

		c.Next()
	}
}
