package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /healthz. It is not authenticated.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
