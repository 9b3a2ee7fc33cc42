package transport

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config returns the fiber settings shared by the console server and its tests.
// Console state keeps cookie and form values after the request returns, so request
// strings must not alias fasthttp's pooled buffers.
func Config(appName string, logger *zap.Logger) fiber.Config {
	return fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          ErrorHandler(logger),
	}
}
