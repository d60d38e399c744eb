package http

import "github.com/labstack/echo/v4"

// Handler is a group of routes mounted on the server. NewServer calls
// RegisterRoutes once per handler before the server starts listening.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
