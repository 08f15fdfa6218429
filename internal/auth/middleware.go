package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

const userKey = "user"

// UserLookup resolves session subjects to profiles
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByAuthID(ctx context.Context, authUserID string) (*models.User, error)
}

// Middleware authenticates the request and stores the profile on the
// context. Inactive users are let through; every capability check denies
// them.
func Middleware(tokens *Manager, users UserLookup, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()

	return func(c *gin.Context) {
		if user, ok := devUser(c, users); ok {
			SetUser(c, user)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.GetByAuthID(c.Request.Context(), claims.Subject)
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("subject", claims.Subject).Msg("Failed to load user profile")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the authenticated profile on the request
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the authenticated profile, or nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
