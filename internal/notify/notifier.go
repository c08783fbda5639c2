package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Message describes one SMS to deliver to a client.
type Message struct {
	To   string
	Body string
}

// Notifier delivers upload-link messages to clients. Implementations must be
// safe to call again for the same message: a retry after a reported failure
// must not corrupt earlier bookkeeping.
type Notifier interface {
	// Send delivers the message and returns a provider correlation id.
	Send(ctx context.Context, msg Message) (string, error)
}

// SimulatedNotifier pretends to deliver messages, writing them to the logger
// instead. It is the default when no live SMS credentials are configured.
type SimulatedNotifier struct {
	logger *slog.Logger
}

// NewSimulatedNotifier constructs a logging notifier.
func NewSimulatedNotifier(logger *slog.Logger) *SimulatedNotifier {
	return &SimulatedNotifier{logger: logger}
}

// Send logs the message and returns a synthetic delivery id.
func (n *SimulatedNotifier) Send(_ context.Context, msg Message) (string, error) {
	id := "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	if n != nil && n.logger != nil {
		n.logger.Info("simulated sms", "to", msg.To, "delivery_id", id, "body", msg.Body)
	}
	return id, nil
}
