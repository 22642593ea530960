package auth

import (
	"net/http"
	"strings"

	"github.com/chainvault/chainvault/pkg/types"
	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// Middleware authenticates a request and attaches the account to the
// context. Interactive clients send a Bearer JWT; non-interactive transfer
// clients send an X-API-Key header instead. Websocket clients cannot set
// headers, so a token query parameter is accepted as a JWT fallback.
func Middleware(authService *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			user, err := authService.ValidateAPIKey(c.Request.Context(), apiKey)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
					Success: false,
					Error:   "invalid credentials",
				})
				return
			}
			c.Set(userContextKey, user)
			c.Next()
			return
		}

		token := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		} else {
			token = c.Query("token")
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
				Success: false,
				Error:   "missing credentials",
			})
			return
		}

		user, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
				Success: false,
				Error:   "invalid credentials",
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated account attached by Middleware
func CurrentUser(c *gin.Context) (*types.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*types.User)
	return user, ok
}
