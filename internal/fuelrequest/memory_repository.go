package fuelrequest

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.Mutex
	requests map[string]FuelRequest // keyed by token
}

// NewMemoryRepository builds an in-memory fuel request store for testing.
// Complete holds the lock across the check-and-set, matching the atomicity
// the Postgres conditional update provides.
func NewMemoryRepository() Repository {
	return &memoryRepository{requests: make(map[string]FuelRequest)}
}

func (r *memoryRepository) Create(_ context.Context, req FuelRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[req.Token]; exists {
		return ErrTokenExists
	}
	r.requests[req.Token] = req
	return nil
}

func (r *memoryRepository) FindByToken(_ context.Context, token string) (FuelRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[token]
	if !ok {
		return FuelRequest{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRepository) ListByClient(_ context.Context, clientID string) ([]FuelRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var requests []FuelRequest
	for _, req := range r.requests {
		if req.ClientID == clientID {
			requests = append(requests, req)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	return requests, nil
}

func (r *memoryRepository) MarkNotified(_ context.Context, id, deliveryID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, req := range r.requests {
		if req.ID == id {
			req.SMSSent = true
			req.SMSSentAt = at
			req.DeliveryID = deliveryID
			r.requests[token] = req
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryRepository) Complete(_ context.Context, token string, comp Completion) (FuelRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[token]
	if !ok {
		return FuelRequest{}, ErrNotFound
	}
	if req.Status == StatusCompleted {
		return FuelRequest{}, ErrAlreadyCompleted
	}
	if req.Status != StatusPending || req.Expired(comp.SubmittedAt) {
		return FuelRequest{}, ErrExpired
	}

	req.Status = StatusCompleted
	req.DocumentsUploaded = true
	req.PhoneTypeUsed = comp.PhoneTypeUsed
	req.SubmittedAt = comp.SubmittedAt
	req.MeterReadingFile = comp.MeterReadingFile
	req.IdentityPhotoFile = comp.IdentityPhotoFile
	req.MeterReadingText = comp.MeterReadingText
	req.IDType = comp.IDType
	req.IDDetails = comp.IDDetails
	req.Postcode = comp.Postcode
	req.MissingDocsReason = comp.MissingDocsReason
	r.requests[token] = req
	return req, nil
}
