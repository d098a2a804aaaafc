package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evolin-labs/auth-service/app/entity"
	"github.com/evolin-labs/auth-service/app/middleware"
	"github.com/evolin-labs/auth-service/app/repository"
	"github.com/evolin-labs/auth-service/app/service"
	"github.com/evolin-labs/auth-service/app/transport"

	"github.com/labstack/echo/v4"
)

type stubResolver struct {
	user      *entity.User
	err       error
	lastToken string
}

func (s *stubResolver) CurrentUser(_ context.Context, accessToken string) (*entity.User, error) {
	s.lastToken = accessToken
	return s.user, s.err
}

func newAuthedRequest(configure func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireAuth_MissingToken(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(&stubResolver{})

	ctx, rec := newAuthedRequest(nil)
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	resolver := &stubResolver{err: service.ErrInvalidToken}
	authMiddleware := middleware.NewAuthMiddleware(resolver)

	ctx, rec := newAuthedRequest(func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: transport.AccessTokenCookie, Value: "bad-token"})
	})
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if resolver.lastToken != "bad-token" {
		t.Fatalf("expected resolver to receive the cookie token, got %q", resolver.lastToken)
	}
}

func TestRequireAuth_CookieToken(t *testing.T) {
	user := &entity.User{ID: "user-1", Email: "user@example.com"}
	authMiddleware := middleware.NewAuthMiddleware(&stubResolver{user: user})

	ctx, rec := newAuthedRequest(func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: transport.AccessTokenCookie, Value: "good-token"})
	})
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		resolved, ok := middleware.UserFromContext(c)
		if !ok {
			return errors.New("user missing from context")
		}
		if resolved.ID != "user-1" {
			return fmt.Errorf("unexpected user %q", resolved.ID)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRequireAuth_BearerHeaderFallback(t *testing.T) {
	user := &entity.User{ID: "user-1", Email: "user@example.com"}
	resolver := &stubResolver{user: user}
	authMiddleware := middleware.NewAuthMiddleware(resolver)

	ctx, rec := newAuthedRequest(func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer header-token")
	})
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if resolver.lastToken != "header-token" {
		t.Fatalf("expected resolver to receive the bearer token, got %q", resolver.lastToken)
	}
}

func TestRequireAuth_InvalidHeaderFormat(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(&stubResolver{})

	ctx, rec := newAuthedRequest(func(req *http.Request) {
		req.Header.Set("Authorization", "Token abc")
	})
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireAuth_StorageUnavailable(t *testing.T) {
	resolver := &stubResolver{err: fmt.Errorf("%w: connection refused", repository.ErrStorageUnavailable)}
	authMiddleware := middleware.NewAuthMiddleware(resolver)

	ctx, rec := newAuthedRequest(func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: transport.AccessTokenCookie, Value: "token"})
	})
	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
