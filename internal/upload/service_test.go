package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fuelbank/fuel_support/internal/fuelrequest"
	"github.com/fuelbank/fuel_support/internal/logging"
	"github.com/fuelbank/fuel_support/internal/storage"
)

func newUploadService(t *testing.T) (*Service, fuelrequest.Repository, storage.Store) {
	t.Helper()
	requests := fuelrequest.NewMemoryRepository()
	store := storage.NewMemoryStore()
	svc := NewService(requests, store, logging.Discard())
	return svc, requests, store
}

func seedRequest(t *testing.T, requests fuelrequest.Repository, token string, expiresAt time.Time) fuelrequest.FuelRequest {
	t.Helper()
	req := fuelrequest.FuelRequest{
		ID:        "req-" + token,
		ClientID:  "client-1",
		Token:     token,
		CreatedAt: expiresAt.Add(-48 * time.Hour),
		ExpiresAt: expiresAt,
		Status:    fuelrequest.StatusPending,
	}
	if err := requests.Create(context.Background(), req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return req
}

func validManual() ManualSubmission {
	return ManualSubmission{
		ClientName:   "Ada Jones",
		ClientPhone:  "07700900123",
		Postcode:     "SE13 5AB",
		MeterReading: "12345.6",
		IDType:       "photo_id",
		IDDetails:    "Passport 123456789",
	}
}

func validPhotos() PhotoSubmission {
	return PhotoSubmission{
		MeterReading:  FilePayload{Filename: "meter.jpg", Size: 4, Content: strings.NewReader("abcd")},
		IdentityPhoto: FilePayload{Filename: "id.png", Size: 4, Content: strings.NewReader("wxyz")},
	}
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _ := newUploadService(t)
	if _, err := svc.Resolve(context.Background(), "no-such-token"); !errors.Is(err, fuelrequest.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitExpiredToken(t *testing.T) {
	svc, requests, _ := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(-time.Minute))

	_, err := svc.Submit(context.Background(), "tok1", validManual())
	if !errors.Is(err, fuelrequest.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	stored, _ := requests.FindByToken(context.Background(), "tok1")
	if stored.Status != fuelrequest.StatusPending || stored.DocumentsUploaded {
		t.Fatalf("expired submission must not mutate the request, got %+v", stored)
	}
}

func TestSubmitManual(t *testing.T) {
	svc, requests, store := newUploadService(t)
	req := seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	updated, err := svc.Submit(context.Background(), "tok1", validManual())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if updated.Status != fuelrequest.StatusCompleted || !updated.DocumentsUploaded {
		t.Fatalf("expected completed request, got %+v", updated)
	}
	if updated.PhoneTypeUsed != fuelrequest.PhoneTypeKeypad {
		t.Fatalf("expected keypad phone type, got %q", updated.PhoneTypeUsed)
	}
	if updated.MeterReadingText != "12345.6" || updated.IDType != "photo_id" {
		t.Fatalf("manual fields not recorded: %+v", updated)
	}
	if !strings.HasPrefix(updated.MeterReadingFile, "manual_entry_"+req.ID) {
		t.Fatalf("manual entry name not scoped to the request: %q", updated.MeterReadingFile)
	}

	rc, err := store.Open(context.Background(), updated.MeterReadingFile)
	if err != nil {
		t.Fatalf("manual entry record not stored: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !strings.Contains(string(data), "Meter Reading: 12345.6") {
		t.Fatalf("manual entry record missing reading: %q", data)
	}
}

func TestSubmitManualValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ManualSubmission)
		field  string
	}{
		{"short id details", func(s *ManualSubmission) { s.IDDetails = "short" }, "id_details"},
		{"missing reading", func(s *ManualSubmission) { s.MeterReading = "  " }, "meter_reading_text"},
		{"unknown id type", func(s *ManualSubmission) { s.IDType = "passport" }, "id_type"},
		{"other without sub-type", func(s *ManualSubmission) { s.IDType = "other" }, "other_id_type"},
		{
			"cannot provide photos without reason",
			func(s *ManualSubmission) { s.CannotProvidePhotos = true },
			"missing_documents_reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := fuelrequest.NewMemoryRepository()
			store := &countingStore{Store: storage.NewMemoryStore()}
			svc := NewService(requests, store, logging.Discard())
			seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

			sub := validManual()
			tt.mutate(&sub)

			_, err := svc.Submit(context.Background(), "tok1", sub)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %q in %v", tt.field, verr.Fields)
			}

			stored, _ := requests.FindByToken(context.Background(), "tok1")
			if stored.Status != fuelrequest.StatusPending {
				t.Fatalf("validation failure must not mutate the request, got %+v", stored)
			}
			if store.saves != 0 {
				t.Fatalf("validation failure must not write any document, saw %d writes", store.saves)
			}
		})
	}
}

type countingStore struct {
	storage.Store
	saves int
}

func (s *countingStore) Save(ctx context.Context, name string, r io.Reader) error {
	s.saves++
	return s.Store.Save(ctx, name, r)
}

func TestSubmitPhotos(t *testing.T) {
	svc, requests, store := newUploadService(t)
	req := seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	updated, err := svc.Submit(context.Background(), "tok1", validPhotos())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if updated.PhoneTypeUsed != fuelrequest.PhoneTypeSmartphone {
		t.Fatalf("expected smartphone phone type, got %q", updated.PhoneTypeUsed)
	}
	if !strings.HasPrefix(updated.MeterReadingFile, "meter_"+req.ID) || !strings.HasSuffix(updated.MeterReadingFile, ".jpg") {
		t.Fatalf("meter photo name not scoped to the request: %q", updated.MeterReadingFile)
	}
	if !strings.HasPrefix(updated.IdentityPhotoFile, "identity_"+req.ID) || !strings.HasSuffix(updated.IdentityPhotoFile, ".png") {
		t.Fatalf("identity photo name not scoped to the request: %q", updated.IdentityPhotoFile)
	}
	for _, name := range []string{updated.MeterReadingFile, updated.IdentityPhotoFile} {
		rc, err := store.Open(context.Background(), name)
		if err != nil {
			t.Fatalf("document %q not stored: %v", name, err)
		}
		rc.Close()
	}
}

func TestSubmitPhotosRejectsUnsupportedType(t *testing.T) {
	svc, requests, _ := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	sub := validPhotos()
	sub.MeterReading.Filename = "meter.txt"

	_, err := svc.Submit(context.Background(), "tok1", sub)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "meter_reading: unsupported file type" {
		t.Fatalf("unexpected fields: %v", verr.Fields)
	}
}

func TestSubmitPhotosRejectsEmptyFile(t *testing.T) {
	svc, requests, _ := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	sub := validPhotos()
	sub.IdentityPhoto.Size = 0

	_, err := svc.Submit(context.Background(), "tok1", sub)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0] != "identity_photo: empty" {
		t.Fatalf("unexpected fields: %v", verr.Fields)
	}
}

func TestSubmitCompletedBeatsExpired(t *testing.T) {
	svc, requests, _ := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	if _, err := svc.Submit(context.Background(), "tok1", validManual()); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// Past expiry now, but the request completed first: completed is
	// terminal and wins the classification.
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err := svc.Submit(context.Background(), "tok1", validManual())
	if !errors.Is(err, fuelrequest.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted for a completed request past expiry, got %v", err)
	}
}

func TestSubmitTwiceRejectsSecond(t *testing.T) {
	svc, requests, _ := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	first, err := svc.Submit(context.Background(), "tok1", validManual())
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err = svc.Submit(context.Background(), "tok1", validPhotos())
	if !errors.Is(err, fuelrequest.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	stored, _ := requests.FindByToken(context.Background(), "tok1")
	if stored.SubmittedAt != first.SubmittedAt || stored.MeterReadingText != first.MeterReadingText {
		t.Fatalf("second submit must not overwrite the first: %+v", stored)
	}
}

func TestSubmitConcurrentDouble(t *testing.T) {
	svc, requests, store := newUploadService(t)
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winner    fuelrequest.FuelRequest
		succeeded int
		rejected  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := svc.Submit(context.Background(), "tok1", validPhotos())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winner = req
				succeeded++
			case errors.Is(err, fuelrequest.ErrAlreadyCompleted):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one completion and one rejection, got %d/%d", succeeded, rejected)
	}

	// The loser's cleanup must not touch the documents the winning commit
	// recorded.
	stored, err := requests.FindByToken(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	if stored.MeterReadingFile != winner.MeterReadingFile || stored.IdentityPhotoFile != winner.IdentityPhotoFile {
		t.Fatalf("stored filenames diverge from the winner: %+v vs %+v", stored, winner)
	}
	for _, name := range []string{stored.MeterReadingFile, stored.IdentityPhotoFile} {
		rc, err := store.Open(context.Background(), name)
		if err != nil {
			t.Fatalf("winning submission's document %q lost: %v", name, err)
		}
		rc.Close()
	}
}

type racingStore struct {
	storage.Store
	once   sync.Once
	winner func()
}

func (s *racingStore) Save(ctx context.Context, name string, r io.Reader) error {
	s.once.Do(s.winner)
	return s.Store.Save(ctx, name, r)
}

func TestSubmitLostRaceKeepsWinningDocuments(t *testing.T) {
	// The loser of the race has already passed the pending pre-check when
	// the winner commits; only the conditional update stops it. Recreate
	// that window by letting a full competing submission run between the
	// loser's read and its first file write.
	requests := fuelrequest.NewMemoryRepository()
	inner := storage.NewMemoryStore()
	winnerSvc := NewService(requests, inner, logging.Discard())
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	var winner fuelrequest.FuelRequest
	store := &racingStore{Store: inner, winner: func() {
		req, err := winnerSvc.Submit(context.Background(), "tok1", validManual())
		if err != nil {
			t.Errorf("winning submit failed: %v", err)
		}
		winner = req
	}}
	loserSvc := NewService(requests, store, logging.Discard())

	_, err := loserSvc.Submit(context.Background(), "tok1", validManual())
	if !errors.Is(err, fuelrequest.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	// The loser's cleanup ran after losing the commit; the document the
	// completed row references must still be there.
	rc, err := inner.Open(context.Background(), winner.MeterReadingFile)
	if err != nil {
		t.Fatalf("completed request points at %q but it is gone: %v", winner.MeterReadingFile, err)
	}
	rc.Close()

	stored, _ := requests.FindByToken(context.Background(), "tok1")
	if stored.MeterReadingFile != winner.MeterReadingFile {
		t.Fatalf("stored filename diverges from the winner: %q vs %q", stored.MeterReadingFile, winner.MeterReadingFile)
	}
}

type failingStore struct {
	storage.Store
	failOn string
	saved  []string
}

func (s *failingStore) Save(ctx context.Context, name string, r io.Reader) error {
	if strings.HasPrefix(name, s.failOn) {
		return errors.New("disk full")
	}
	if err := s.Store.Save(ctx, name, r); err != nil {
		return err
	}
	s.saved = append(s.saved, name)
	return nil
}

func TestSubmitPhotosCleansUpOnStorageFailure(t *testing.T) {
	requests := fuelrequest.NewMemoryRepository()
	inner := storage.NewMemoryStore()
	store := &failingStore{Store: inner, failOn: "identity_"}
	svc := NewService(requests, store, logging.Discard())
	seedRequest(t, requests, "tok1", time.Now().UTC().Add(time.Hour))

	if _, err := svc.Submit(context.Background(), "tok1", validPhotos()); err == nil {
		t.Fatalf("expected storage failure to surface")
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected the meter photo alone to have been written, saw %v", store.saved)
	}
	if _, err := inner.Open(context.Background(), store.saved[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("meter photo should have been removed after the identity save failed")
	}
	stored, _ := requests.FindByToken(context.Background(), "tok1")
	if stored.Status != fuelrequest.StatusPending {
		t.Fatalf("request must stay pending after a storage failure, got %+v", stored)
	}
}
