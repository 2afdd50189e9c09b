package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Message(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"message": message})
}

func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

func ErrorWithDetails(c *gin.Context, statusCode int, message string, details any) {
	c.JSON(statusCode, gin.H{
		"error":   message,
		"details": details,
	})
}

// Internal answers 500 and attaches err to the gin context so the error
// logging middleware reports it.
func Internal(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	ErrorWithDetails(c, http.StatusInternalServerError, message, err.Error())
}
