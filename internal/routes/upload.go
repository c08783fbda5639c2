package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fuelbank/fuel_support/internal/upload"
)

// RegisterUploadRoutes wires the public token-bearing upload endpoints.
func RegisterUploadRoutes(app *fiber.App, h *upload.Handler, rateLimit fiber.Handler) {
	app.Get("/upload/:token", h.Show)
	app.Post("/upload/:token", rateLimit, h.Submit)
}
