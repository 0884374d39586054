package tools

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			// Log the panic with stack trace
			zapFields := []zap.Field{
				zap.Any("panic", r),
				log.Any("stack", string(debug.Stack())),
				zap.String("path", c.Request.URL.Path),
			}
			log.Logger.Error("Recovered from panic", zapFields...)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
	}()
	c.Next()
}

// RequestLogger logs one line per request.
func RequestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)))
}
