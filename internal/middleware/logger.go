package middleware

import (
	"time"

	"hbinterface/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		requestID, _ := c.Get("request_id")

		logFields := map[string]interface{}{
			"request_id": requestID,
			"method":     method,
			"path":       path,
			"status":     statusCode,
			"latency_ms": latency.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if userID, exists := c.Get(ContextUserID); exists {
			logFields["user_id"] = userID
		}

		switch {
		case statusCode >= 500:
			// causes attached with c.Error never reach the response body
			var cause error
			if last := c.Errors.Last(); last != nil {
				cause = last.Err
			}
			log.WithFields(logFields).Error("Server error", cause)
		case statusCode >= 400:
			log.WithFields(logFields).Warn("Client error")
		default:
			log.WithFields(logFields).Info("Request completed")
		}
	}
}
