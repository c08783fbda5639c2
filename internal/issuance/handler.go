package issuance

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/fuelrequest"
)

// Handler exposes staff endpoints for issuing upload links.
type Handler struct {
	service  *Service
	requests fuelrequest.Repository
}

// NewHandler constructs an issuance HTTP handler.
func NewHandler(service *Service, requests fuelrequest.Repository) *Handler {
	return &Handler{service: service, requests: requests}
}

type issueRequest struct {
	ClientIDs []string `json:"client_ids"`
}

type outcomeResponse struct {
	ClientID   string `json:"client_id"`
	RequestID  string `json:"request_id,omitempty"`
	Token      string `json:"token,omitempty"`
	Delivered  bool   `json:"delivered"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type batchResponse struct {
	Sent     int               `json:"sent"`
	Failed   int               `json:"failed"`
	Outcomes []outcomeResponse `json:"outcomes"`
}

// Issue creates upload links for the selected clients and sends the SMS messages.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if len(req.ClientIDs) == 0 {
		return fiber.NewError(http.StatusBadRequest, "select at least one client")
	}

	batch, err := h.service.IssueBatch(c.UserContext(), req.ClientIDs)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	resp := batchResponse{Sent: batch.Sent, Failed: batch.Failed}
	for _, out := range batch.Outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomeResponse{
			ClientID:   out.ClientID,
			RequestID:  out.RequestID,
			Token:      out.Token,
			Delivered:  out.Delivered,
			DeliveryID: out.DeliveryID,
			Error:      out.Error,
		})
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

type requestResponse struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"client_id"`
	Token             string    `json:"token"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	SMSSent           bool      `json:"sms_sent"`
	DocumentsUploaded bool      `json:"documents_uploaded"`
	PhoneTypeUsed     string    `json:"phone_type_used,omitempty"`
	SubmittedAt       time.Time `json:"submitted_at,omitempty"`
	MeterReadingText  string    `json:"meter_reading_text,omitempty"`
	IDType            string    `json:"id_type,omitempty"`
	Postcode          string    `json:"postcode,omitempty"`
}

// Get returns the staff view of a single request, with expiry resolved
// against the wall clock.
func (h *Handler) Get(c *fiber.Ctx) error {
	req, err := h.requests.FindByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		if errors.Is(err, fuelrequest.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(requestResponse{
		ID:                req.ID,
		ClientID:          req.ClientID,
		Token:             req.Token,
		Status:            string(req.EffectiveStatus(time.Now().UTC())),
		CreatedAt:         req.CreatedAt,
		ExpiresAt:         req.ExpiresAt,
		SMSSent:           req.SMSSent,
		DocumentsUploaded: req.DocumentsUploaded,
		PhoneTypeUsed:     string(req.PhoneTypeUsed),
		SubmittedAt:       req.SubmittedAt,
		MeterReadingText:  req.MeterReadingText,
		IDType:            req.IDType,
		Postcode:          req.Postcode,
	})
}

// mapIssueError translates issuance failures for single-client callers.
func mapIssueError(err error) error {
	switch {
	case errors.Is(err, ErrConsentRequired):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, client.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}

// IssueOne creates and dispatches a single upload link for one client.
func (h *Handler) IssueOne(c *fiber.Ctx) error {
	res, err := h.service.Issue(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapIssueError(err)
	}
	return c.Status(http.StatusCreated).JSON(outcomeResponse{
		ClientID:   res.Request.ClientID,
		RequestID:  res.Request.ID,
		Token:      res.Request.Token,
		Delivered:  res.Delivered,
		DeliveryID: res.DeliveryID,
		Error:      res.DeliveryError,
	})
}
