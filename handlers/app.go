package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/andesco/partials/pkg/partials"
)

// NewApp wires the status API and the composing proxy for origin.
func NewApp(composer *partials.Composer, origin string, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "partials " + Version,
	})

	app.Get("/api/*", PartialsStatus(composer, origin, logger))
	app.Get("/*", ComposeSite(composer, origin, logger))

	return app
}
