package issuance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/fuelrequest"
	"github.com/fuelbank/fuel_support/internal/logging"
	"github.com/fuelbank/fuel_support/internal/notify"
)

type testNotifier struct {
	last notify.Message
	sent int
	err  error
}

func (n *testNotifier) Send(_ context.Context, msg notify.Message) (string, error) {
	n.last = msg
	if n.err != nil {
		return "", n.err
	}
	n.sent++
	return "SM123", nil
}

func testConfig() Config {
	return Config{
		BaseURL:       "https://fuel.example.org",
		LinkTTL:       48 * time.Hour,
		FoodBankName:  "Lewisham Food Bank",
		FoodBankPhone: "020-1234-5678",
	}
}

func newTestService(notifier notify.Notifier) (*Service, *client.Service, fuelrequest.Repository, notify.RecordRepository) {
	clients := client.NewService(client.NewMemoryRepository())
	requests := fuelrequest.NewMemoryRepository()
	records := notify.NewMemoryRecordRepository()
	svc := NewService(clients, requests, records, notifier, testConfig(), logging.Discard())
	return svc, clients, requests, records
}

func registerClient(t *testing.T, clients *client.Service, consent bool) client.Client {
	t.Helper()
	c, err := clients.Register(context.Background(), client.RegisterInput{
		Name:        "Ada Jones",
		Phone:       "07700900123",
		GDPRConsent: consent,
	})
	if err != nil {
		t.Fatalf("register client: %v", err)
	}
	return c
}

func TestIssueRequiresConsent(t *testing.T) {
	notifier := &testNotifier{}
	svc, clients, requests, _ := newTestService(notifier)
	c := registerClient(t, clients, false)

	_, err := svc.Issue(context.Background(), c.ID)
	if !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
	if notifier.sent != 0 {
		t.Fatalf("notifier must not be called without consent")
	}
	if reqs, _ := requests.ListByClient(context.Background(), c.ID); len(reqs) != 0 {
		t.Fatalf("expected no request persisted, got %d", len(reqs))
	}
}

func TestIssueSetsExpiryExactly(t *testing.T) {
	svc, clients, _, _ := newTestService(&testNotifier{})
	c := registerClient(t, clients, true)

	res, err := svc.Issue(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	req := res.Request
	if got := req.ExpiresAt.Sub(req.CreatedAt); got != 48*time.Hour {
		t.Fatalf("expected expiry exactly 48h after creation, got %s", got)
	}
	if req.Status != fuelrequest.StatusPending {
		t.Fatalf("expected pending status, got %s", req.Status)
	}
	if req.Token == "" {
		t.Fatalf("expected a token")
	}
}

func TestIssueSendsUploadLink(t *testing.T) {
	notifier := &testNotifier{}
	svc, clients, requests, records := newTestService(notifier)
	c := registerClient(t, clients, true)

	res, err := svc.Issue(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !res.Delivered || res.DeliveryID != "SM123" {
		t.Fatalf("expected delivery, got %+v", res)
	}

	wantURL := "https://fuel.example.org/upload/" + res.Request.Token
	if res.UploadURL != wantURL {
		t.Fatalf("expected upload url %q, got %q", wantURL, res.UploadURL)
	}
	if !strings.Contains(notifier.last.Body, wantURL) {
		t.Fatalf("message body missing upload url: %q", notifier.last.Body)
	}
	if !strings.Contains(notifier.last.Body, "48 hours") {
		t.Fatalf("message body missing expiry note: %q", notifier.last.Body)
	}
	if notifier.last.To != c.Phone {
		t.Fatalf("message sent to %q, want %q", notifier.last.To, c.Phone)
	}

	stored, err := requests.FindByToken(context.Background(), res.Request.Token)
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	if !stored.SMSSent || stored.DeliveryID != "SM123" {
		t.Fatalf("expected sms bookkeeping on request, got %+v", stored)
	}

	recs, _ := records.ListByClient(context.Background(), c.ID)
	if len(recs) != 1 || recs[0].Status != notify.StatusSent {
		t.Fatalf("expected one sent record, got %+v", recs)
	}
}

func TestIssueKeepsRequestOnDeliveryFailure(t *testing.T) {
	notifier := &testNotifier{err: errors.New("provider down")}
	svc, clients, requests, records := newTestService(notifier)
	c := registerClient(t, clients, true)

	res, err := svc.Issue(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("issue must not fail on delivery errors, got %v", err)
	}
	if res.Delivered {
		t.Fatalf("expected delivery failure, got %+v", res)
	}
	if res.DeliveryError == "" {
		t.Fatalf("expected delivery error to be surfaced")
	}

	// The link stays valid so staff can pass it on by phone.
	stored, err := requests.FindByToken(context.Background(), res.Request.Token)
	if err != nil {
		t.Fatalf("request should remain persisted: %v", err)
	}
	if stored.SMSSent {
		t.Fatalf("request must not be marked notified on failure")
	}

	recs, _ := records.ListByClient(context.Background(), c.ID)
	if len(recs) != 1 || recs[0].Status != notify.StatusFailed || recs[0].ErrorMessage == "" {
		t.Fatalf("expected one failed record with error, got %+v", recs)
	}
}

func TestIssueBatchCountsOutcomes(t *testing.T) {
	svc, clients, _, _ := newTestService(&testNotifier{})
	consented := registerClient(t, clients, true)
	declined, err := clients.Register(context.Background(), client.RegisterInput{Name: "Grace", Phone: "07700900999"})
	if err != nil {
		t.Fatalf("register client: %v", err)
	}

	batch, err := svc.IssueBatch(context.Background(), []string{consented.ID, declined.ID, "missing-id"})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if batch.Sent != 1 || batch.Failed != 2 {
		t.Fatalf("expected 1 sent / 2 failed, got %d / %d", batch.Sent, batch.Failed)
	}
	if len(batch.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(batch.Outcomes))
	}
	if !batch.Outcomes[0].Delivered || batch.Outcomes[1].Error == "" || batch.Outcomes[2].Error == "" {
		t.Fatalf("unexpected outcomes: %+v", batch.Outcomes)
	}
}
