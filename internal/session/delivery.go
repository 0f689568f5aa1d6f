package session

import "github.com/labstack/echo/v4"

type Handler interface {
	OnPublish() echo.HandlerFunc
	OnUnpublish() echo.HandlerFunc
	OnPlay() echo.HandlerFunc
	OnStop() echo.HandlerFunc
	GetSession() echo.HandlerFunc
	ListLiveSessions() echo.HandlerFunc
}
