package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"theranotes-go/internal/logger"
)

// RequestID makes sure every request carries an id: the inbound X-Request-ID
// or a fresh uuid. The id is echoed in the response and stored in the request
// context for outbound stage calls.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := logger.RequestID(c.Request)
		c.Request.Header.Set(logger.RequestIDHeader, reqID)
		c.Header(logger.RequestIDHeader, reqID)
		c.Set("request_id", reqID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), reqID))
		c.Next()
	}
}

// RequestLogger writes one line per request. Errors attached with c.Error are
// logged here and never sent to the client.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		lat := time.Since(start)
		status := c.Writer.Status()

		entry := l.WithRequest(c.Request).WithFields(logrus.Fields{
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": lat.Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
