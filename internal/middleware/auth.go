package middleware

import (
	"net/http"
	"strings"

	"vacuumvp-service/pkg/jwtutil"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract the token
		tokenString := parts[1]

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("user_role", claims.Role)

		// Token is valid, proceed with the request
		return next(c)
	}
}

// RequireAdmin allows only users whose token carries the admin role
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, "admin")
}

// RequireAnyRole allows both admin and distributer users
func RequireAnyRole(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, "admin", "distributer")
}

func requireRole(next echo.HandlerFunc, allowed ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		role, _ := c.Get("user_role").(string)
		for _, a := range allowed {
			if role == a {
				return next(c)
			}
		}

		log.Error("Insufficient permissions",
			zap.String("role", role),
			zap.Strings("required", allowed))
		prometheus.RecordAuthError("insufficient_role")
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "insufficient permissions. Required role: " + strings.Join(allowed, ", "),
		})
	}
}
