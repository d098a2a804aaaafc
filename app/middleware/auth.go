package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/evolin-labs/auth-service/app/entity"
	"github.com/evolin-labs/auth-service/app/repository"
	"github.com/evolin-labs/auth-service/app/service"
	"github.com/evolin-labs/auth-service/app/transport"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ContextUserKey is where RequireAuth stores the resolved *entity.User on the
// echo context.
const ContextUserKey = "user"

type currentUserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (*entity.User, error)
}

type AuthMiddleware struct {
	authService currentUserResolver
}

func NewAuthMiddleware(authService currentUserResolver) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth extracts the access token (session cookie first, bearer header
// as the fallback), resolves it to a user, and attaches the identity to the
// request context. Handlers behind it can rely on UserFromContext.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := extractAccessToken(c)
		if tokenString == "" {
			logrus.Debug("Missing access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "authentication required",
			})
		}

		user, err := m.authService.CurrentUser(c.Request().Context(), tokenString)
		if err != nil {
			if errors.Is(err, repository.ErrStorageUnavailable) {
				logrus.WithError(err).Error("User store unavailable during token resolution")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error": "service unavailable",
				})
			}
			if errors.Is(err, service.ErrInvalidToken) {
				logrus.Debug("Invalid or expired access token")
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired token",
				})
			}
			logrus.WithError(err).Error("Token resolution failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}

		c.Set(ContextUserKey, user)

		return next(c)
	}
}

// UserFromContext returns the identity attached by RequireAuth.
func UserFromContext(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(ContextUserKey).(*entity.User)
	return user, ok
}

func extractAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(transport.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
