package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/evolin-labs/auth-service/app/dto"
	httpdto "github.com/evolin-labs/auth-service/app/dto/http"
	"github.com/evolin-labs/auth-service/app/entity"
	"github.com/evolin-labs/auth-service/app/middleware"
	"github.com/evolin-labs/auth-service/app/repository"
	"github.com/evolin-labs/auth-service/app/service"
	"github.com/evolin-labs/auth-service/app/transport"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type authService interface {
	Register(ctx context.Context, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*dto.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResult, error)
	Logout()
}

type AuthController struct {
	authService authService
	cookies     *transport.SessionCookies
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewAuthController(authService authService, cookies *transport.SessionCookies, accessTTL, refreshTTL time.Duration) *AuthController {
	return &AuthController{
		authService: authService,
		cookies:     cookies,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

func (c *AuthController) Register(ctx echo.Context) error {
	req, err := httpdto.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	user, err := c.authService.Register(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			logrus.WithField("email", req.Email).Warn("Register failed: user already exists")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "user already exists"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.WithField("email", req.Email).Warn("Register failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, repository.ErrStorageUnavailable) {
			logrus.WithError(err).Error("Register failed: storage unavailable")
			return ctx.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: "service unavailable"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, httpdto.NewUserResponse(user))
}

func (c *AuthController) Login(ctx echo.Context) error {
	req, err := httpdto.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	result, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid credentials"})
		}
		if errors.Is(err, repository.ErrStorageUnavailable) {
			logrus.WithError(err).Error("Login failed: storage unavailable")
			return ctx.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: "service unavailable"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	c.cookies.Set(ctx, result.AccessToken, result.RefreshToken, c.accessTTL, c.refreshTTL)

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.JSON(http.StatusOK, httpdto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		User:         httpdto.NewUserResponse(result.User),
	})
}

// Me returns the identity resolved by the auth middleware.
func (c *AuthController) Me(ctx echo.Context) error {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		logrus.Warn("Me failed: missing user in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	return ctx.JSON(http.StatusOK, httpdto.NewUserResponse(user))
}

func (c *AuthController) Refresh(ctx echo.Context) error {
	tokenString := extractRefreshToken(ctx)
	if tokenString == "" {
		logrus.Debug("Refresh failed: missing refresh token")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid or expired token"})
	}

	logrus.Info("Refresh request received")
	result, err := c.authService.Refresh(ctx.Request().Context(), tokenString)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.Warn("Refresh failed: invalid or expired token")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid or expired token"})
		}
		if errors.Is(err, repository.ErrStorageUnavailable) {
			logrus.WithError(err).Error("Refresh failed: storage unavailable")
			return ctx.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: "service unavailable"})
		}
		logrus.WithError(err).Error("Refresh failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	c.cookies.Set(ctx, result.AccessToken, result.RefreshToken, c.accessTTL, c.refreshTTL)

	logrus.WithField("user_id", result.User.ID).Info("Refresh successful")
	return ctx.JSON(http.StatusOK, httpdto.RefreshResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		User:         httpdto.NewUserResponse(result.User),
	})
}

// Logout clears both credential artifacts. There is no server-side session
// to tear down, so it succeeds even without a valid token.
func (c *AuthController) Logout(ctx echo.Context) error {
	c.authService.Logout()
	c.cookies.Clear(ctx)

	logrus.Info("Logout successful")
	return ctx.NoContent(http.StatusNoContent)
}

func extractRefreshToken(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(transport.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	req := httpdto.NewRefreshRequestFromContext(ctx)
	return req.RefreshToken
}
