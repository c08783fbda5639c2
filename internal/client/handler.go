package client

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes client registry endpoints for staff.
type Handler struct {
	service *Service
}

// NewHandler constructs a client HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	HasCameraPhone bool   `json:"has_camera_phone"`
	GDPRConsent    bool   `json:"gdpr_consent"`
	ReferrerName   string `json:"referrer_name"`
	ReferrerEmail  string `json:"referrer_email"`
}

type clientResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	HasCameraPhone bool      `json:"has_camera_phone"`
	GDPRConsent    bool      `json:"gdpr_consent"`
	ReferrerName   string    `json:"referrer_name,omitempty"`
	ReferrerEmail  string    `json:"referrer_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toResponse(c Client) clientResponse {
	return clientResponse{
		ID:             c.ID,
		Name:           c.Name,
		Phone:          c.Phone,
		HasCameraPhone: c.HasCameraPhone,
		GDPRConsent:    c.GDPRConsent,
		ReferrerName:   c.ReferrerName,
		ReferrerEmail:  c.ReferrerEmail,
		CreatedAt:      c.CreatedAt,
	}
}

// Register handles client onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.service.Register(c.UserContext(), RegisterInput{
		Name:           req.Name,
		Phone:          req.Phone,
		HasCameraPhone: req.HasCameraPhone,
		GDPRConsent:    req.GDPRConsent,
		ReferrerName:   req.ReferrerName,
		ReferrerEmail:  req.ReferrerEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPhoneExists):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidInput):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(created))
}

// Get returns a single client.
func (h *Handler) Get(c *fiber.Ctx) error {
	found, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(toResponse(found))
}

// List returns all registered clients.
func (h *Handler) List(c *fiber.Ctx) error {
	clients, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]clientResponse, 0, len(clients))
	for _, cl := range clients {
		out = append(out, toResponse(cl))
	}
	return c.JSON(out)
}
