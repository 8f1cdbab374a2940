package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/config"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/utils"
)

// InitAuth configures the Casdoor SDK from service configuration. Must run
// once before AuthMiddleware handles requests.
func InitAuth(cfg *config.Config) {
	casdoorsdk.InitConfig(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
}

// AuthMiddleware validates the bearer token, mirrors the identity into the
// local users table and exposes user_id / user_role / user on the context.
func AuthMiddleware(repo repositories.Repository, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing or malformed Authorization header",
			})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := casdoorsdk.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		user := &models.User{
			ID:       claims.User.Id,
			FullName: claims.User.DisplayName,
			Email:    claims.User.Email,
			Role:     roleFromClaims(&claims.User),
		}

		// Keep the local mirror fresh; auth does not depend on it succeeding.
		if err := repo.User().Upsert(c.Request.Context(), user); err != nil {
			logger.Warn("Failed to upsert user", "user_id", user.ID, "error", err)
		}

		c.Set("user_id", user.ID)
		c.Set("user_role", string(user.Role))
		c.Set("user", user)
		c.Next()
	}
}

func roleFromClaims(u *casdoorsdk.User) models.UserRole {
	if u.IsAdmin {
		return models.RoleSuperAdmin
	}
	switch strings.ToLower(u.Tag) {
	case "teacher":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// RequireTeacher blocks users without a teaching role. Room-level checks
// still apply inside the services.
func RequireTeacher() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("user_role")
		if role != string(models.RoleTeacher) && role != string(models.RoleSuperAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Teacher role required",
			})
			return
		}
		c.Next()
	}
}

// currentUser returns the full identity set by AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil, false
	}
	return user, true
}
