package middleware

import (
	"errors"
	"law_consult_app/services"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContextKeyActor is the context key for the services.Actor of the request
const ContextKeyActor = "actor"

// RequireAuth authenticates the request with HTTP basic auth (email / password) and
// stores the caller's Actor in the context
func RequireAuth(database *gorm.DB, log *zap.Logger) echo.MiddlewareFunc {
	return echomw.BasicAuthWithConfig(echomw.BasicAuthConfig{
		Realm: "Law Consultations",
		Validator: func(email, password string, c echo.Context) (bool, error) {
			user, err := services.Authenticate(c.Request().Context(), database, email, password)
			if err != nil {
				if errors.Is(err, services.ErrInvalidCredentials) {
					log.Info("authentication failed", zap.String("email", email), zap.String("ip", c.RealIP()))
					return false, nil
				}
				return false, err
			}

			c.Set(ContextKeyActor, services.Actor{UserID: user.ID, Role: user.Role})
			return true, nil
		},
	})
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetActor(c)

			hasRole := false
			for _, role := range roles {
				if actor.Role == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}

// GetActor returns the request's actor, or services.Anonymous for public requests
func GetActor(c echo.Context) services.Actor {
	actor, ok := c.Get(ContextKeyActor).(services.Actor)
	if !ok {
		return services.Anonymous
	}
	return actor
}
