package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/andesco/partials/pkg/partials"
)

// Version is reported by the status API.
var Version = "dev"

type APIResponse struct {
	Version    string               `json:"version"`
	Page       string               `json:"page"`
	Completion *partials.Completion `json:"completion,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// PartialsStatus composes the page at /api/<path> and reports the load cycle as JSON
// instead of returning the page.
func PartialsStatus(composer *partials.Composer, origin string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestURI := "/" + c.Params("*")
		if q := string(c.Request().URI().QueryString()); q != "" {
			requestURI += "?" + q
		}

		target, err := extractURL(origin, requestURI)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(APIResponse{Version: Version, Error: err.Error()})
		}

		response := APIResponse{Version: Version, Page: target}

		page, err := composer.FetchPage(c.UserContext(), target)
		if err != nil {
			logger.Error("could not fetch page", zap.String("url", target), zap.Error(err))
			response.Error = err.Error()
			status := fiber.StatusBadGateway
			var statusErr *partials.StatusError
			if errors.As(err, &statusErr) {
				status = statusErr.StatusCode
			}
			return c.Status(status).JSON(response)
		}

		_, completion, err := composer.Compose(c.UserContext(), target, page.Body)
		if err != nil {
			response.Error = err.Error()
			return c.Status(fiber.StatusUnprocessableEntity).JSON(response)
		}
		response.Completion = &completion
		return c.JSON(response)
	}
}
