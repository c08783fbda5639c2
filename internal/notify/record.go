package notify

import "time"

// Delivery statuses recorded against each attempt.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Record logs one SMS delivery attempt. Every issuance writes exactly one
// record whether or not the provider accepted the message.
type Record struct {
	ID           string
	ClientID     string
	RequestID    string
	Phone        string
	Body         string
	Status       string
	DeliveryID   string
	ErrorMessage string
	CreatedAt    time.Time
	SentAt       time.Time
}
