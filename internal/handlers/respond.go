package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"infofix-oracle/internal/apperrors"
)

// respondError writes the error's kind-mapped status with a client-facing
// message. Internal causes are logged, not leaked.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": apperrors.Message(err)})
}
