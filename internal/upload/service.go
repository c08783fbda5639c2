package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fuelbank/fuel_support/internal/fuelrequest"
	"github.com/fuelbank/fuel_support/internal/storage"
)

// Service resolves upload tokens and finalizes submissions. It owns the
// pending -> completed transition: expiry is computed from the wall clock on
// every entry point and re-checked by the repository at commit time.
type Service struct {
	requests fuelrequest.Repository
	store    storage.Store
	logger   *slog.Logger

	now func() time.Time
}

// NewService constructs an upload service.
func NewService(requests fuelrequest.Repository, store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		requests: requests,
		store:    store,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve looks up the request behind a token. Expired and completed requests
// still resolve; only submission is restricted.
func (s *Service) Resolve(ctx context.Context, token string) (fuelrequest.FuelRequest, error) {
	return s.requests.FindByToken(ctx, token)
}

// Submit validates the payload and finalizes the request. It performs no
// partial mutation: a validation failure touches nothing, and a storage or
// commit failure removes any documents written along the way.
func (s *Service) Submit(ctx context.Context, token string, sub Submission) (fuelrequest.FuelRequest, error) {
	req, err := s.requests.FindByToken(ctx, token)
	if err != nil {
		return fuelrequest.FuelRequest{}, err
	}

	now := s.now()
	// Completed is terminal; it wins over expiry when a request is both,
	// matching the commit-time classification in the repositories.
	if req.Status == fuelrequest.StatusCompleted {
		return fuelrequest.FuelRequest{}, fuelrequest.ErrAlreadyCompleted
	}
	if req.Expired(now) {
		return fuelrequest.FuelRequest{}, fuelrequest.ErrExpired
	}

	// Document names carry an attempt suffix so two submissions racing on
	// the same token never write to the same name: the loser's cleanup can
	// only ever remove its own files, never the ones the winning commit
	// recorded.
	attempt := newAttemptID()

	var (
		comp  fuelrequest.Completion
		saved []string
	)

	switch sub := sub.(type) {
	case ManualSubmission:
		comp, saved, err = s.prepareManual(ctx, req, sub, now, attempt)
	case PhotoSubmission:
		comp, saved, err = s.preparePhotos(ctx, req, sub, now, attempt)
	default:
		return fuelrequest.FuelRequest{}, fmt.Errorf("unsupported submission type %T", sub)
	}
	if err != nil {
		s.removeAll(ctx, saved)
		return fuelrequest.FuelRequest{}, err
	}

	updated, err := s.requests.Complete(ctx, token, comp)
	if err != nil {
		// The conditional update lost to an expiry or a concurrent
		// submission; the documents written for this attempt are orphans.
		s.removeAll(ctx, saved)
		return fuelrequest.FuelRequest{}, err
	}
	return updated, nil
}

func (s *Service) prepareManual(ctx context.Context, req fuelrequest.FuelRequest, sub ManualSubmission, now time.Time, attempt string) (fuelrequest.Completion, []string, error) {
	if err := sub.validate(); err != nil {
		return fuelrequest.Completion{}, nil, err
	}

	idType := sub.IDType
	if idType == "other" {
		idType = "other: " + strings.TrimSpace(sub.OtherIDType)
	}

	reason := ""
	if sub.CannotProvidePhotos {
		reason = sub.MissingDocsReason
	}

	name := fmt.Sprintf("manual_entry_%s_%s.txt", req.ID, attempt)
	record := fmt.Sprintf(`KEYPAD USER ENTRY
Client Name: %s
Phone: %s
Postcode: %s
Meter Reading: %s
ID Type: %s
ID Details: %s
Timestamp: %s
`, strings.TrimSpace(sub.ClientName), strings.TrimSpace(sub.ClientPhone), strings.TrimSpace(sub.Postcode),
		strings.TrimSpace(sub.MeterReading), idType, strings.TrimSpace(sub.IDDetails), now.Format(time.RFC3339))

	if err := s.store.Save(ctx, name, strings.NewReader(record)); err != nil {
		s.logger.Error("store manual entry", "request_id", req.ID, "error", err)
		return fuelrequest.Completion{}, nil, fmt.Errorf("store manual entry: %w", err)
	}

	return fuelrequest.Completion{
		PhoneTypeUsed:     fuelrequest.PhoneTypeKeypad,
		SubmittedAt:       now,
		MeterReadingFile:  name,
		IdentityPhotoFile: name,
		MeterReadingText:  strings.TrimSpace(sub.MeterReading),
		IDType:            idType,
		IDDetails:         strings.TrimSpace(sub.IDDetails),
		Postcode:          strings.TrimSpace(sub.Postcode),
		MissingDocsReason: reason,
	}, []string{name}, nil
}

func (s *Service) preparePhotos(ctx context.Context, req fuelrequest.FuelRequest, sub PhotoSubmission, now time.Time, attempt string) (fuelrequest.Completion, []string, error) {
	if err := sub.validate(); err != nil {
		return fuelrequest.Completion{}, nil, err
	}

	// Request- and attempt-scoped names keep uploads from different requests
	// and from concurrent attempts on the same request apart, even when
	// clients submit identically named files.
	meterName := scopedName("meter", req.ID, attempt, sub.MeterReading.Filename)
	identityName := scopedName("identity", req.ID, attempt, sub.IdentityPhoto.Filename)

	var saved []string
	if err := s.store.Save(ctx, meterName, sub.MeterReading.Content); err != nil {
		s.logger.Error("store meter photo", "request_id", req.ID, "error", err)
		return fuelrequest.Completion{}, saved, fmt.Errorf("store meter photo: %w", err)
	}
	saved = append(saved, meterName)

	if err := s.store.Save(ctx, identityName, sub.IdentityPhoto.Content); err != nil {
		s.logger.Error("store identity photo", "request_id", req.ID, "error", err)
		return fuelrequest.Completion{}, saved, fmt.Errorf("store identity photo: %w", err)
	}
	saved = append(saved, identityName)

	return fuelrequest.Completion{
		PhoneTypeUsed:     fuelrequest.PhoneTypeSmartphone,
		SubmittedAt:       now,
		MeterReadingFile:  meterName,
		IdentityPhotoFile: identityName,
	}, saved, nil
}

func (s *Service) removeAll(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.store.Remove(ctx, name); err != nil {
			s.logger.Warn("remove orphaned document", "name", name, "error", err)
		}
	}
}

func scopedName(kind, requestID, attempt, filename string) string {
	return fmt.Sprintf("%s_%s_%s%s", kind, requestID, attempt, strings.ToLower(filepath.Ext(filename)))
}

func newAttemptID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
