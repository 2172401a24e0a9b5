package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userContextKey = "rateintel_user"

// authMiddleware guards write endpoints with a bearer JWT signed by the
// configured secret. When no secret is configured authentication is
// disabled, which is the expected setup behind a trusted gateway.
func (c *Controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		secret := c.settings.Auth.JWTSecret
		if secret == "" {
			return next(ctx)
		}

		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.fail(ctx, http.StatusUnauthorized, "Missing bearer token")
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return c.fail(ctx, http.StatusUnauthorized, "Invalid bearer token")
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			ctx.Set(userContextKey, sub)
		}
		return next(ctx)
	}
}

// requestUser returns the authenticated user, or the fallback the
// request body supplied.
func requestUser(ctx echo.Context, fallback string) string {
	if user, ok := ctx.Get(userContextKey).(string); ok && user != "" {
		return user
	}
	return fallback
}
