package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderKey carries the request ID on requests and responses.
const HeaderKey = "X-Request-ID"

const contextKey = "request_id"

const maxInboundLength = 128

// Middleware propagates the caller's request ID or assigns a new UUID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if id == "" || len(id) > maxInboundLength {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(HeaderKey, id)
		c.Next()
	}
}

// Value returns the request ID stored on c, or "".
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
