package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInput indicates a registration request is missing required fields.
var ErrInvalidInput = errors.New("name and phone number are required")

// Service manages client registration and lookup.
type Service struct {
	repo Repository
}

// NewService creates a new client service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register stores a new client with a normalized phone number.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Client, error) {
	name := strings.TrimSpace(input.Name)
	phone := NormalizePhone(input.Phone)
	if name == "" || phone == "" {
		return Client{}, ErrInvalidInput
	}

	c := Client{
		ID:             uuid.New().String(),
		Name:           name,
		Phone:          phone,
		HasCameraPhone: input.HasCameraPhone,
		GDPRConsent:    input.GDPRConsent,
		ReferrerName:   strings.TrimSpace(input.ReferrerName),
		ReferrerEmail:  strings.TrimSpace(input.ReferrerEmail),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Client{}, err
	}

	return c, nil
}

// Get fetches a single client by identifier.
func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all registered clients.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	return s.repo.List(ctx)
}

// NormalizePhone converts a UK phone number to international format. Numbers
// already carrying a country code are kept as entered.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "0") {
		return "+44" + phone[1:]
	}
	if !strings.HasPrefix(phone, "+") {
		return "+44" + phone
	}
	return phone
}
