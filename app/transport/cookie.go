// Package transport holds the boundary convention for delivering tokens to
// browser clients. It is a delivery detail only: the authentication core
// treats token strings as opaque values, so a bearer header or any other
// scheme can replace cookies without touching it.
package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

type SessionCookies struct {
	secure   bool
	sameSite http.SameSite
	domain   string
}

func NewSessionCookies(secure bool, sameSite, domain string) *SessionCookies {
	return &SessionCookies{
		secure:   secure,
		sameSite: parseSameSite(sameSite),
		domain:   domain,
	}
}

// Set delivers both credential artifacts. Each cookie's lifetime matches its
// token's TTL, so the artifact and the claim it carries expire together.
func (s *SessionCookies) Set(ctx echo.Context, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	ctx.SetCookie(s.cookie(AccessTokenCookie, accessToken, int(accessTTL.Seconds())))
	ctx.SetCookie(s.cookie(RefreshTokenCookie, refreshToken, int(refreshTTL.Seconds())))
}

// Clear expires both artifacts on the client.
func (s *SessionCookies) Clear(ctx echo.Context) {
	ctx.SetCookie(s.cookie(AccessTokenCookie, "", -1))
	ctx.SetCookie(s.cookie(RefreshTokenCookie, "", -1))
}

func (s *SessionCookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
