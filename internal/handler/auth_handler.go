package handler

import (
	"net/http"

	"donation_tracker/internal/model"
	"donation_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	log     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{service: s, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, &req, err)
		return
	}

	_, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"token":   token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, &req, err)
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "failed to login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"role":    user.Role,
		"name":    user.Name,
	})
}

// RegisterAuthRoutes registers auth routes. Extra handlers (rate limiting)
// run before both endpoints.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	authGroup := rg.Group("/auth", mw...)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}
