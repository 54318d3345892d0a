package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftride/dispatch-core/pkg/logger"
)

// CorrelationIDHeader carries the correlation id on requests and responses
const CorrelationIDHeader = "X-Correlation-ID"

const correlationIDKey = "correlation_id"

// CorrelationID tags every request with a correlation id. A caller-supplied
// id is honored when it parses as a UUID, otherwise a fresh one is minted.
// The id is echoed on the response and threaded through the request context
// so downstream log lines carry it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(
			logger.ContextWithCorrelationID(c.Request.Context(), id),
		)
		c.Writer.Header().Set(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the correlation id for the current request
func GetCorrelationID(c *gin.Context) string {
	if id, ok := c.Get(correlationIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return logger.CorrelationIDFromContext(c.Request.Context())
}
