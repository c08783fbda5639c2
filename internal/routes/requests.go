package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fuelbank/fuel_support/internal/issuance"
)

// RegisterRequestRoutes wires the staff bulk-issuance and request-view endpoints.
func RegisterRequestRoutes(api fiber.Router, issuer *issuance.Handler) {
	api.Post("/requests", issuer.Issue)
	api.Get("/requests/:token", issuer.Get)
}
