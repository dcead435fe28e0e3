package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// ExtractUUIDParam validates a UUID path parameter and stores it in the gin
// context under contextKey.
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		if _, err := uuid.Parse(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, raw)
		c.Next()
	}
}

// ExtractAttemptIDParam validates an attempt id path parameter, accepting
// both remote UUIDs and local-marked identifiers, and stores the parsed
// entity.AttemptID in the gin context under contextKey.
func ExtractAttemptIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := entity.ParseAttemptID(c.Param(paramName))
		if id.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}
