package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/issuance"
	"github.com/fuelbank/fuel_support/internal/notify"
)

// RegisterClientRoutes wires the staff client-registry endpoints.
func RegisterClientRoutes(api fiber.Router, clients *client.Handler, issuer *issuance.Handler, records notify.RecordRepository) {
	api.Post("/clients", clients.Register)
	api.Get("/clients", clients.List)
	api.Get("/clients/:id", clients.Get)

	// Issue a single upload link straight from the client record.
	api.Post("/clients/:id/requests", issuer.IssueOne)

	// SMS history for one client.
	api.Get("/clients/:id/notifications", func(c *fiber.Ctx) error {
		recs, err := records.ListByClient(c.UserContext(), c.Params("id"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		out := make([]fiber.Map, 0, len(recs))
		for _, rec := range recs {
			entry := fiber.Map{
				"id":         rec.ID,
				"request_id": rec.RequestID,
				"phone":      rec.Phone,
				"status":     rec.Status,
				"created_at": rec.CreatedAt.Format(time.RFC3339),
			}
			if rec.DeliveryID != "" {
				entry["delivery_id"] = rec.DeliveryID
			}
			if rec.ErrorMessage != "" {
				entry["error"] = rec.ErrorMessage
			}
			if !rec.SentAt.IsZero() {
				entry["sent_at"] = rec.SentAt.Format(time.RFC3339)
			}
			out = append(out, entry)
		}
		return c.JSON(out)
	})
}
