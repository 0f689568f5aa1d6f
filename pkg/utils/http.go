package utils

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UserCtxKey struct{}

// GetOwnerFromCtx returns the owner id the auth middleware attached to the
// request context.
func GetOwnerFromCtx(ctx context.Context) (uuid.UUID, error) {
	ownerID, ok := ctx.Value(UserCtxKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("owner not found in context")
	}
	return ownerID, nil
}

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.Request().RemoteAddr
}

func ReadRequest(ctx echo.Context, request interface{}) error {
	if err := ctx.Bind(request); err != nil {
		return err
	}
	return ValidateStruct(ctx.Request().Context(), request)
}
