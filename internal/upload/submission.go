package upload

import (
	"io"

	"github.com/fuelbank/fuel_support/internal/fuelrequest"
)

// Submission is the payload of a client's upload-form POST, decoded once at
// the HTTP boundary into one of two variants. Everything past the boundary
// dispatches on the concrete type, never on a raw phone_type string.
type Submission interface {
	phoneType() fuelrequest.PhoneType
}

// FilePayload is an uploaded file handed to the service as an open stream.
type FilePayload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ManualSubmission carries the typed-in data from clients without a camera
// phone (the keypad path).
type ManualSubmission struct {
	ClientName   string
	ClientPhone  string
	Postcode     string
	MeterReading string
	IDType       string
	OtherIDType  string
	IDDetails    string

	CannotProvidePhotos bool
	MissingDocsReason   string
}

func (ManualSubmission) phoneType() fuelrequest.PhoneType { return fuelrequest.PhoneTypeKeypad }

// PhotoSubmission carries the two image uploads from the smartphone path.
type PhotoSubmission struct {
	MeterReading  FilePayload
	IdentityPhoto FilePayload
}

func (PhotoSubmission) phoneType() fuelrequest.PhoneType { return fuelrequest.PhoneTypeSmartphone }
