package fuelrequest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no request exists for the given token.
	ErrNotFound = errors.New("request not found")

	// ErrAlreadyCompleted indicates the request was finalized by an earlier submission.
	ErrAlreadyCompleted = errors.New("request already completed")

	// ErrExpired indicates the request is past its expiry.
	ErrExpired = errors.New("request expired")

	// ErrTokenExists indicates a token collision on insert.
	ErrTokenExists = errors.New("token already exists")
)

// Repository persists fuel requests. Complete must be atomic: given
// concurrent submissions for the same token, at most one may succeed.
type Repository interface {
	Create(ctx context.Context, req FuelRequest) error
	FindByToken(ctx context.Context, token string) (FuelRequest, error)
	ListByClient(ctx context.Context, clientID string) ([]FuelRequest, error)
	MarkNotified(ctx context.Context, id, deliveryID string, at time.Time) error
	Complete(ctx context.Context, token string, comp Completion) (FuelRequest, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed fuel request repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const requestColumns = `id, client_id, token, created_at, expires_at, status,
    sms_sent, sms_sent_at, delivery_id, documents_uploaded, phone_type_used, submitted_at,
    meter_reading_file, identity_photo_file, meter_reading_text, id_type, id_details,
    postcode, missing_docs_reason, staff_notes`

// Create inserts a new pending request.
func (r *PostgresRepository) Create(ctx context.Context, req FuelRequest) error {
	reqID, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO fuel_requests (id, client_id, token, created_at, expires_at, status)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		reqID, clientID, req.Token, req.CreatedAt.UTC(), req.ExpiresAt.UTC(), req.Status)
	return err
}

// FindByToken fetches a request by its upload token. Requests remain readable
// after expiry; callers decide what expiry means for them.
func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (FuelRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM fuel_requests WHERE token = $1`, token)
	return scanRequest(row)
}

// ListByClient returns all requests issued to a client, newest first.
func (r *PostgresRepository) ListByClient(ctx context.Context, clientID string) ([]FuelRequest, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM fuel_requests WHERE client_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []FuelRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// MarkNotified records a successful SMS delivery against the request.
func (r *PostgresRepository) MarkNotified(ctx context.Context, id, deliveryID string, at time.Time) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE fuel_requests SET sms_sent = true, sms_sent_at = $1, delivery_id = $2 WHERE id = $3`,
		at.UTC(), deliveryID, reqID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete finalizes a pending request in a single conditional update. The
// WHERE clause re-checks both the pending status and the expiry against the
// submission instant, so a request that expired or completed between the
// caller's read and this write is rejected, never overwritten.
func (r *PostgresRepository) Complete(ctx context.Context, token string, comp Completion) (FuelRequest, error) {
	submittedAt := comp.SubmittedAt.UTC()
	cmd, err := r.db.Exec(ctx, `UPDATE fuel_requests
        SET status = $2, documents_uploaded = true, phone_type_used = $3, submitted_at = $4,
            meter_reading_file = $5, identity_photo_file = $6, meter_reading_text = $7,
            id_type = $8, id_details = $9, postcode = $10, missing_docs_reason = $11
        WHERE token = $1 AND status = $12 AND expires_at > $4`,
		token, StatusCompleted, comp.PhoneTypeUsed, submittedAt,
		comp.MeterReadingFile, comp.IdentityPhotoFile, comp.MeterReadingText,
		comp.IDType, comp.IDDetails, comp.Postcode, comp.MissingDocsReason,
		StatusPending)
	if err != nil {
		return FuelRequest{}, err
	}

	if cmd.RowsAffected() == 0 {
		existing, err := r.FindByToken(ctx, token)
		if err != nil {
			return FuelRequest{}, err
		}
		return FuelRequest{}, classifyRejection(existing)
	}

	return r.FindByToken(ctx, token)
}

// classifyRejection explains why the conditional update matched no rows.
func classifyRejection(existing FuelRequest) error {
	if existing.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	return ErrExpired
}

func scanRequest(row pgx.Row) (FuelRequest, error) {
	var (
		id        uuid.UUID
		clientID  uuid.UUID
		req       FuelRequest
		smsSentAt *time.Time
		submitted *time.Time
	)
	if err := row.Scan(&id, &clientID, &req.Token, &req.CreatedAt, &req.ExpiresAt, &req.Status,
		&req.SMSSent, &smsSentAt, &req.DeliveryID, &req.DocumentsUploaded, &req.PhoneTypeUsed, &submitted,
		&req.MeterReadingFile, &req.IdentityPhotoFile, &req.MeterReadingText, &req.IDType, &req.IDDetails,
		&req.Postcode, &req.MissingDocsReason, &req.StaffNotes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FuelRequest{}, ErrNotFound
		}
		return FuelRequest{}, err
	}
	req.ID = id.String()
	req.ClientID = clientID.String()
	req.CreatedAt = req.CreatedAt.UTC()
	req.ExpiresAt = req.ExpiresAt.UTC()
	if smsSentAt != nil {
		req.SMSSentAt = smsSentAt.UTC()
	}
	if submitted != nil {
		req.SubmittedAt = submitted.UTC()
	}
	return req, nil
}
