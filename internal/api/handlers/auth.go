package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRequest represents the console login form
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin handles POST /login
func HandleLogin(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		sess, err := console.Services.Auth.Login(c.Request.Context(), req.Phone, req.Password)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"role": sess.Role})
	}
}

// HandleLogout handles POST /logout
func HandleLogout(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := console.Services.Auth.Logout(c.Request.Context()); err != nil {
			logger.Error("Failed to log out", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
	}
}
