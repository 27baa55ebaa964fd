package dispatch

import "github.com/labstack/echo/v4"

// EchoMiddleware adapts d for an echo server.
func EchoMiddleware(d *Dispatcher) echo.MiddlewareFunc {
	return echo.WrapMiddleware(d.Middleware)
}

// EchoReadableBody adapts ReadableBody for an echo server.
func EchoReadableBody(maxBytes int64) echo.MiddlewareFunc {
	return echo.WrapMiddleware(ReadableBody(maxBytes))
}
