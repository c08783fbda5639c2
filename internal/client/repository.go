package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no client exists for the given identifier.
	ErrNotFound = errors.New("client not found")

	// ErrPhoneExists indicates another client is already registered with the phone number.
	ErrPhoneExists = errors.New("phone number already registered")
)

// Repository persists clients.
type Repository interface {
	Create(ctx context.Context, c Client) error
	FindByID(ctx context.Context, id string) (Client, error)
	FindByPhone(ctx context.Context, phone string) (Client, error)
	List(ctx context.Context) ([]Client, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed client repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const clientColumns = `id, name, phone, has_camera_phone, gdpr_consent, referrer_name, referrer_email, created_at`

// Create inserts a new client.
func (r *PostgresRepository) Create(ctx context.Context, c Client) error {
	clientID, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO clients (id, name, phone, has_camera_phone, gdpr_consent, referrer_name, referrer_email, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		clientID, c.Name, c.Phone, c.HasCameraPhone, c.GDPRConsent, c.ReferrerName, c.ReferrerEmail, c.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPhoneExists
		}
		return err
	}
	return nil
}

// FindByID fetches a client by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return Client{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, clientID)
	return scanClient(row)
}

// FindByPhone fetches a client by normalized phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Client, error) {
	row := r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone = $1`, phone)
	return scanClient(row)
}

// List returns all clients ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func scanClient(row pgx.Row) (Client, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		c         Client
	)
	if err := row.Scan(&id, &c.Name, &c.Phone, &c.HasCameraPhone, &c.GDPRConsent, &c.ReferrerName, &c.ReferrerEmail, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	c.ID = id.String()
	c.CreatedAt = createdAt.UTC()
	return c, nil
}
