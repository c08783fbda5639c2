package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordRepository persists SMS delivery records.
type RecordRepository interface {
	Create(ctx context.Context, rec Record) error
	ListByClient(ctx context.Context, clientID string) ([]Record, error)
}

// PostgresRecordRepository implements RecordRepository using PostgreSQL.
type PostgresRecordRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRecordRepository builds a Postgres-backed delivery record repository.
func NewPostgresRecordRepository(db *pgxpool.Pool) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// Create inserts a delivery record.
func (r *PostgresRecordRepository) Create(ctx context.Context, rec Record) error {
	recID, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(rec.ClientID)
	if err != nil {
		return err
	}
	var requestID *uuid.UUID
	if rec.RequestID != "" {
		parsed, err := uuid.Parse(rec.RequestID)
		if err != nil {
			return err
		}
		requestID = &parsed
	}
	var sentAt *time.Time
	if !rec.SentAt.IsZero() {
		t := rec.SentAt.UTC()
		sentAt = &t
	}
	_, err = r.db.Exec(ctx, `INSERT INTO sms_records (id, client_id, request_id, phone, body, status, delivery_id, error_message, created_at, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		recID, clientID, requestID, rec.Phone, rec.Body, rec.Status, rec.DeliveryID, rec.ErrorMessage, rec.CreatedAt.UTC(), sentAt)
	return err
}

// ListByClient returns delivery records for a client, newest first.
func (r *PostgresRecordRepository) ListByClient(ctx context.Context, clientID string) ([]Record, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, errors.New("invalid client id")
	}
	rows, err := r.db.Query(ctx, `SELECT id, client_id, request_id, phone, body, status, delivery_id, error_message, created_at, sent_at
        FROM sms_records WHERE client_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id        uuid.UUID
		clientID  uuid.UUID
		requestID *uuid.UUID
		sentAt    *time.Time
		rec       Record
	)
	if err := row.Scan(&id, &clientID, &requestID, &rec.Phone, &rec.Body, &rec.Status,
		&rec.DeliveryID, &rec.ErrorMessage, &rec.CreatedAt, &sentAt); err != nil {
		return Record{}, err
	}
	rec.ID = id.String()
	rec.ClientID = clientID.String()
	if requestID != nil {
		rec.RequestID = requestID.String()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if sentAt != nil {
		rec.SentAt = sentAt.UTC()
	}
	return rec, nil
}
