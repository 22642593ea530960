package auth

import (
	"net/http"

	"github.com/chainvault/chainvault/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes mounts the public authentication endpoints and the
// authenticated API key management endpoints
func (s *Service) RegisterRoutes(api *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	keys := api.Group("/auth/apikeys")
	keys.Use(authMW)
	{
		keys.POST("", s.handleCreateAPIKey)
		keys.GET("", s.handleListAPIKeys)
		keys.DELETE("/:id", s.handleRevokeAPIKey)
	}
}

func (s *Service) handleRegister(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	user, err := s.Register(c.Request.Context(), &req)
	if err != nil {
		log.Warn().Err(err).Str("username", req.Username).Msg("registration failed")
		c.JSON(http.StatusConflict, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, types.APIResponse{
		Success: true,
		Message: "user registered",
		Data:    user,
	})
}

func (s *Service) handleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	token, err := s.Login(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{
		Success: true,
		Data:    token,
	})
}

// handleCreateAPIKey issues a key for non-interactive transfer clients.
// The plaintext key appears in this response and nowhere else.
func (s *Service) handleCreateAPIKey(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	var req types.APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	credential, err := s.CreateAPIKey(c.Request.Context(), user.ID, &req)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create API key")
		c.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "failed to create API key"})
		return
	}

	c.JSON(http.StatusCreated, types.APIResponse{
		Success: true,
		Message: "store this key now; it will not be shown again",
		Data:    credential,
	})
}

func (s *Service) handleListAPIKeys(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	keys, err := s.ListAPIKeys(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "failed to list API keys"})
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: keys})
}

func (s *Service) handleRevokeAPIKey(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid key id"})
		return
	}

	if err := s.RevokeAPIKey(c.Request.Context(), user.ID, keyID); err != nil {
		c.JSON(http.StatusNotFound, types.APIResponse{Success: false, Error: "API key not found"})
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{Success: true, Message: "API key revoked"})
}
