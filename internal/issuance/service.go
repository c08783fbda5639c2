package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/fuelrequest"
	"github.com/fuelbank/fuel_support/internal/notify"
)

// ErrConsentRequired indicates the client has not given GDPR consent, so no
// request may be issued or message sent.
var ErrConsentRequired = errors.New("client has not given GDPR consent")

// Config carries the issuance-time settings extracted from app configuration.
type Config struct {
	BaseURL       string
	LinkTTL       time.Duration
	FoodBankName  string
	FoodBankPhone string
}

// Service creates fuel requests and dispatches upload links.
type Service struct {
	clients  *client.Service
	requests fuelrequest.Repository
	records  notify.RecordRepository
	notifier notify.Notifier
	cfg      Config
	logger   *slog.Logger

	now func() time.Time
}

// NewService constructs an issuance service.
func NewService(clients *client.Service, requests fuelrequest.Repository, records notify.RecordRepository, notifier notify.Notifier, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		clients:  clients,
		requests: requests,
		records:  records,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssueResult reports the outcome of a single issuance. A request can exist
// and remain valid even when delivery failed; staff can pass the link on by
// other channels.
type IssueResult struct {
	Request       fuelrequest.FuelRequest
	UploadURL     string
	Delivered     bool
	DeliveryID    string
	DeliveryError string
}

// Issue creates a pending request for the client and asks the notifier to
// deliver the upload link. Delivery failure is recorded but does not roll
// back the request.
func (s *Service) Issue(ctx context.Context, clientID string) (IssueResult, error) {
	c, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return IssueResult{}, err
	}
	if !c.GDPRConsent {
		return IssueResult{}, ErrConsentRequired
	}

	now := s.now()
	req := fuelrequest.FuelRequest{
		ID:        uuid.New().String(),
		ClientID:  c.ID,
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.LinkTTL),
		Status:    fuelrequest.StatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return IssueResult{}, fmt.Errorf("persist request: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/upload/%s", s.cfg.BaseURL, req.Token)
	body := notify.RenderUploadMessage(notify.TemplateData{
		ClientName:    c.Name,
		UploadURL:     uploadURL,
		LinkHours:     int(s.cfg.LinkTTL.Hours()),
		FoodBankName:  s.cfg.FoodBankName,
		FoodBankPhone: s.cfg.FoodBankPhone,
	})

	rec := notify.Record{
		ID:        uuid.New().String(),
		ClientID:  c.ID,
		RequestID: req.ID,
		Phone:     c.Phone,
		Body:      body,
		Status:    notify.StatusPending,
		CreatedAt: now,
	}

	result := IssueResult{Request: req, UploadURL: uploadURL}

	deliveryID, sendErr := s.notifier.Send(ctx, notify.Message{To: c.Phone, Body: body})
	if sendErr != nil {
		rec.Status = notify.StatusFailed
		rec.ErrorMessage = sendErr.Error()
		result.DeliveryError = sendErr.Error()
		s.logger.Warn("sms delivery failed, request kept", "client_id", c.ID, "request_id", req.ID, "error", sendErr)
	} else {
		sentAt := s.now()
		rec.Status = notify.StatusSent
		rec.DeliveryID = deliveryID
		rec.SentAt = sentAt
		result.Delivered = true
		result.DeliveryID = deliveryID
		if err := s.requests.MarkNotified(ctx, req.ID, deliveryID, sentAt); err != nil {
			s.logger.Error("mark request notified", "request_id", req.ID, "error", err)
		} else {
			result.Request.SMSSent = true
			result.Request.SMSSentAt = sentAt
			result.Request.DeliveryID = deliveryID
		}
	}

	if err := s.records.Create(ctx, rec); err != nil {
		s.logger.Error("persist delivery record", "request_id", req.ID, "error", err)
	}

	return result, nil
}

// Outcome summarizes one client's result within a batch issuance.
type Outcome struct {
	ClientID   string
	RequestID  string
	Token      string
	Delivered  bool
	DeliveryID string
	Error      string
}

// BatchResult aggregates the outcomes of a batch issuance.
type BatchResult struct {
	Sent     int
	Failed   int
	Outcomes []Outcome
}

// IssueBatch issues a request per client id, continuing past individual
// failures the way staff expect a bulk send to behave.
func (s *Service) IssueBatch(ctx context.Context, clientIDs []string) (BatchResult, error) {
	if len(clientIDs) == 0 {
		return BatchResult{}, errors.New("at least one client id is required")
	}

	var batch BatchResult
	for _, id := range clientIDs {
		res, err := s.Issue(ctx, id)
		out := Outcome{ClientID: id}
		switch {
		case err != nil:
			out.Error = err.Error()
			batch.Failed++
		case !res.Delivered:
			out.RequestID = res.Request.ID
			out.Token = res.Request.Token
			out.Error = res.DeliveryError
			batch.Failed++
		default:
			out.RequestID = res.Request.ID
			out.Token = res.Request.Token
			out.Delivered = true
			out.DeliveryID = res.DeliveryID
			batch.Sent++
		}
		batch.Outcomes = append(batch.Outcomes, out)
	}
	return batch, nil
}
