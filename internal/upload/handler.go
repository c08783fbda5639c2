package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/fuelrequest"
)

// Form field names shared with the client-side form.
const (
	fieldPhoneType = "phone_type"

	phoneTypeKeypad     = "keypad"
	phoneTypeSmartphone = "smartphone"
)

// Handler exposes the public token-bearing upload endpoints.
type Handler struct {
	service *Service
	clients *client.Service
	logger  *slog.Logger
}

// NewHandler constructs the upload HTTP handler.
func NewHandler(service *Service, clients *client.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, clients: clients, logger: logger}
}

type formDescriptor struct {
	ClientName         string    `json:"client_name"`
	Status             string    `json:"status"`
	ExpiresAt          time.Time `json:"expires_at"`
	PhoneTypes         []string  `json:"phone_types"`
	IDTypes            []string  `json:"id_types"`
	MissingDocsReasons []string  `json:"missing_documents_reasons"`
}

// Show renders the submission form descriptor for a token. Unknown tokens are
// 404, expired links 410; both checks mirror Submit exactly.
func (h *Handler) Show(c *fiber.Ctx) error {
	req, err := h.service.Resolve(c.UserContext(), c.Params("token"))
	if err != nil {
		if errors.Is(err, fuelrequest.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "upload link not found")
		}
		return err
	}

	now := time.Now().UTC()
	if req.Status == fuelrequest.StatusPending && req.Expired(now) {
		return fiber.NewError(http.StatusGone, "upload link expired")
	}

	name := ""
	if owner, err := h.clients.Get(c.UserContext(), req.ClientID); err == nil {
		name = owner.Name
	}

	return c.JSON(formDescriptor{
		ClientName:         name,
		Status:             string(req.EffectiveStatus(now)),
		ExpiresAt:          req.ExpiresAt,
		PhoneTypes:         []string{phoneTypeKeypad, phoneTypeSmartphone},
		IDTypes:            IDTypes,
		MissingDocsReasons: MissingDocsReasons,
	})
}

type submitResponse struct {
	Status        string    `json:"status"`
	PhoneTypeUsed string    `json:"phone_type_used"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Message       string    `json:"message"`
}

type validationResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// Submit accepts either submission path, discriminated by the phone_type
// form field, and finalizes the request.
func (h *Handler) Submit(c *fiber.Ctx) error {
	token := c.Params("token")

	sub, closeFiles, err := h.decodeSubmission(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	req, err := h.service.Submit(c.UserContext(), token, sub)
	if err != nil {
		return h.mapSubmitError(c, err)
	}

	return c.JSON(submitResponse{
		Status:        string(req.Status),
		PhoneTypeUsed: string(req.PhoneTypeUsed),
		SubmittedAt:   req.SubmittedAt,
		Message:       "Documents submitted successfully. We will process your request soon.",
	})
}

// decodeSubmission turns the multipart form into a tagged Submission variant.
// The returned func closes any opened file streams and must run after the
// service has consumed them.
func (h *Handler) decodeSubmission(c *fiber.Ctx) (Submission, func(), error) {
	noop := func() {}

	switch c.FormValue(fieldPhoneType) {
	case phoneTypeKeypad:
		return ManualSubmission{
			ClientName:          c.FormValue("client_name"),
			ClientPhone:         c.FormValue("client_phone"),
			Postcode:            c.FormValue("client_postcode"),
			MeterReading:        c.FormValue("meter_reading_text"),
			IDType:              c.FormValue("id_type"),
			OtherIDType:         c.FormValue("other_id_type"),
			IDDetails:           c.FormValue("id_details"),
			CannotProvidePhotos: formChecked(c.FormValue("cannot_upload_pictures")),
			MissingDocsReason:   c.FormValue("missing_documents_reason"),
		}, noop, nil

	case phoneTypeSmartphone:
		var (
			sub     PhotoSubmission
			closers []io.Closer
		)
		closeAll := func() {
			for _, cl := range closers {
				cl.Close()
			}
		}
		if meter, err := c.FormFile("meter_reading"); err == nil {
			f, err := meter.Open()
			if err != nil {
				closeAll()
				return nil, noop, fiber.NewError(http.StatusBadRequest, "unreadable meter reading upload")
			}
			closers = append(closers, f)
			sub.MeterReading = FilePayload{Filename: meter.Filename, Size: meter.Size, Content: f}
		}
		if identity, err := c.FormFile("identity_photo"); err == nil {
			f, err := identity.Open()
			if err != nil {
				closeAll()
				return nil, noop, fiber.NewError(http.StatusBadRequest, "unreadable identity photo upload")
			}
			closers = append(closers, f)
			sub.IdentityPhoto = FilePayload{Filename: identity.Filename, Size: identity.Size, Content: f}
		}
		return sub, closeAll, nil

	default:
		return nil, noop, fiber.NewError(http.StatusBadRequest, "phone_type must be keypad or smartphone")
	}
}

func (h *Handler) mapSubmitError(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(http.StatusBadRequest).JSON(validationResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, fuelrequest.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "upload link not found")
	case errors.Is(err, fuelrequest.ErrExpired):
		return fiber.NewError(http.StatusGone, "upload link expired")
	case errors.Is(err, fuelrequest.ErrAlreadyCompleted):
		return fiber.NewError(http.StatusConflict, "documents were already submitted for this link")
	default:
		h.logger.Error("submission failed", "token", c.Params("token"), "error", err)
		return fiber.NewError(http.StatusInternalServerError, "could not process submission")
	}
}

func formChecked(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
