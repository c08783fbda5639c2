package upload

import (
	"fmt"
	"path/filepath"
	"strings"
)

const minIDDetailsLength = 10

// AllowedExtensions is the image extension allow-list for the photo path.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// IDTypes enumerates the identity documents the manual path accepts. "other"
// requires a free-text sub-type.
var IDTypes = []string{"photo_id", "utility_bill", "dwp_letter", "council_letter", "other"}

// MissingDocsReasons enumerates why a manual-path client cannot supply photos.
var MissingDocsReasons = []string{"no_camera", "camera_broken", "technical_issues", "prefer_manual", "other"}

// ValidationError reports the form fields that failed validation. The service
// guarantees no mutation happened when one is returned.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) add(field string) {
	e.Fields = append(e.Fields, field)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (s ManualSubmission) validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(s.ClientName) == "" {
		verr.add("client_name")
	}
	if strings.TrimSpace(s.ClientPhone) == "" {
		verr.add("client_phone")
	}
	if strings.TrimSpace(s.MeterReading) == "" {
		verr.add("meter_reading_text")
	}
	if !contains(IDTypes, s.IDType) {
		verr.add("id_type")
	} else if s.IDType == "other" && strings.TrimSpace(s.OtherIDType) == "" {
		verr.add("other_id_type")
	}
	if len(strings.TrimSpace(s.IDDetails)) < minIDDetailsLength {
		verr.add("id_details")
	}
	if s.CannotProvidePhotos && !contains(MissingDocsReasons, s.MissingDocsReason) {
		verr.add("missing_documents_reason")
	}
	return verr.orNil()
}

func (s PhotoSubmission) validate() error {
	verr := &ValidationError{}
	if err := checkImage(s.MeterReading); err != "" {
		verr.add("meter_reading" + err)
	}
	if err := checkImage(s.IdentityPhoto); err != "" {
		verr.add("identity_photo" + err)
	}
	return verr.orNil()
}

// checkImage returns an empty string for a valid upload, or a suffix
// describing the failure to append to the field name.
func checkImage(f FilePayload) string {
	if f.Filename == "" || f.Content == nil {
		return ": missing"
	}
	if f.Size == 0 {
		return ": empty"
	}
	if !allowedExtension(f.Filename) {
		return ": unsupported file type"
	}
	return ""
}

func allowedExtension(filename string) bool {
	return contains(AllowedExtensions, strings.ToLower(filepath.Ext(filename)))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
