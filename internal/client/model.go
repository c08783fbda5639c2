package client

import "time"

// Client represents a food bank client eligible for fuel support.
type Client struct {
	ID             string
	Name           string
	Phone          string
	HasCameraPhone bool
	GDPRConsent    bool
	ReferrerName   string
	ReferrerEmail  string
	CreatedAt      time.Time
}

// RegisterInput captures the data staff provide when registering a client.
type RegisterInput struct {
	Name           string
	Phone          string
	HasCameraPhone bool
	GDPRConsent    bool
	ReferrerName   string
	ReferrerEmail  string
}
