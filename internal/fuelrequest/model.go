package fuelrequest

import "time"

// Status tracks the stored lifecycle state of a fuel request.
type Status string

const (
	// StatusPending means the upload link has been issued and not yet used.
	StatusPending Status = "pending"
	// StatusCompleted means documents were submitted before the link expired.
	StatusCompleted Status = "completed"
	// StatusExpired is the derived state of a pending request past its expiry.
	StatusExpired Status = "expired"
)

// PhoneType identifies which submission path the client used.
type PhoneType string

const (
	// PhoneTypeKeypad marks a manual text entry submission.
	PhoneTypeKeypad PhoneType = "keypad"
	// PhoneTypeSmartphone marks a photo upload submission.
	PhoneTypeSmartphone PhoneType = "smartphone"
)

// FuelRequest is a single fuel support request issued to a client. The token
// is globally unique and immutable after creation.
type FuelRequest struct {
	ID        string
	ClientID  string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Status    Status

	SMSSent    bool
	SMSSentAt  time.Time
	DeliveryID string

	DocumentsUploaded bool
	PhoneTypeUsed     PhoneType
	SubmittedAt       time.Time

	MeterReadingFile  string
	IdentityPhotoFile string

	MeterReadingText  string
	IDType            string
	IDDetails         string
	Postcode          string
	MissingDocsReason string
	StaffNotes        string
}

// Expired reports whether the request is past its expiry at the given
// instant. Expiry is always computed from the wall clock; the stored status
// column may lag behind and is never trusted alone.
func (r FuelRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// EffectiveStatus resolves the stored status against the wall clock: a
// pending request past expiry reads as expired even though no sweep has
// rewritten the row.
func (r FuelRequest) EffectiveStatus(now time.Time) Status {
	if r.Status == StatusPending && r.Expired(now) {
		return StatusExpired
	}
	return r.Status
}

// Completion carries the payload persisted when a submission finalizes a
// request. Exactly one of the file pair or the manual fields is populated,
// depending on the phone type.
type Completion struct {
	PhoneTypeUsed PhoneType
	SubmittedAt   time.Time

	MeterReadingFile  string
	IdentityPhotoFile string

	MeterReadingText  string
	IDType            string
	IDDetails         string
	Postcode          string
	MissingDocsReason string
}
