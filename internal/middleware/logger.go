package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per HTTP request; health probes are logged only when they fail
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		if c.FullPath() == "/health" && status < 400 {
			return
		}

		user := c.GetString("user")
		if user == "" {
			user = "-"
		}

		log.Printf("[HTTP] %s %s %d %v ip=%s user=%s %s",
			c.Request.Method,
			path,
			status,
			time.Since(start).Round(time.Microsecond),
			c.ClientIP(),
			user,
			c.Errors.String(),
		)
	}
}
