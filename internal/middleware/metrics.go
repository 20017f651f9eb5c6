package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/service"
)

// Metrics captures request counts and latencies per route.
func Metrics(metrics *service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
