package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/types"
)

// Version is reported by every service root.
const Version = "0.1.0"

// Info serves GET / with the service banner.
func Info(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.ServiceInfo{Message: message, Version: Version})
	}
}
