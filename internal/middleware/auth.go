package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/streamhive/live-backend/pkg/utils"
)

// AuthJWTMiddleware authenticates API callers from a bearer token and puts
// the owner id on the request context.
func (mw *MiddlewareManager) AuthJWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bearerHeader := c.Request().Header.Get("Authorization")
			if bearerHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			headerParts := strings.Split(bearerHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "Bearer") {
				mw.logger.Error("auth middleware: malformed Authorization header")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			claims, err := utils.ValidateToken(headerParts[1], mw.cfg.Server.JwtSecretKey)
			if err != nil {
				mw.logger.Errorf("auth middleware - ValidateToken: %v", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			ownerID, err := uuid.Parse(claims.OwnerID)
			if err != nil {
				mw.logger.Errorf("auth middleware - invalid owner id claim: %v", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			ctx := context.WithValue(c.Request().Context(), utils.UserCtxKey{}, ownerID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// HookTokenMiddleware guards the ingest hook endpoints with a shared secret so
// only the media server can drive session state.
func (mw *MiddlewareManager) HookTokenMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if mw.cfg.Server.HookToken == "" {
				return next(c)
			}
			token := c.Request().Header.Get("X-Hook-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(mw.cfg.Server.HookToken)) != 1 {
				mw.logger.Error("hook middleware: bad hook token")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
