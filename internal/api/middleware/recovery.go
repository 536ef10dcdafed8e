package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/apperr"
)

// Recovery turns a handler panic into a redacted 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(fmt.Errorf("panic: %v", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    apperr.CodeInternal,
			"message": http.StatusText(http.StatusInternalServerError),
		})
	})
}
