package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"merchantpay/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id          uuid PRIMARY KEY,
    package_id  integer NOT NULL,
    amount      text NOT NULL,
    description text NOT NULL,
    status      text NOT NULL DEFAULT 'pending',
    pay_link    text,
    created_at  timestamptz NOT NULL DEFAULT now(),
    updated_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC);
CREATE TABLE IF NOT EXISTS processed_events (
    event_id     text PRIMARY KEY,
    processed_at timestamptz NOT NULL DEFAULT now()
);`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the orders and processed_events tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Insert(ctx context.Context, o model.Order) (model.Order, error) {
	o.ID = uuid.New().String()
	if o.Status == "" {
		o.Status = model.StatusPending
	}
	row := p.db.QueryRowContext(ctx, `INSERT INTO orders (id, package_id, amount, description, status, pay_link)
        VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at, updated_at`,
		o.ID, o.PackageID, o.Amount, o.Description, string(o.Status), nullIfEmpty(o.PayLink))
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (p *Postgres) FindOne(ctx context.Context, id string) (model.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		// not a uuid, so it cannot be a row; avoids a cast error from postgres
		return model.Order{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

func (p *Postgres) FindAll(ctx context.Context) ([]model.Order, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) Update(ctx context.Context, o model.Order, from model.Status) (model.Order, error) {
	if _, err := uuid.Parse(o.ID); err != nil {
		return model.Order{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3 RETURNING `+orderColumns,
		o.ID, string(o.Status), string(from))
	out, err := scanOrder(row)
	if !errors.Is(err, sql.ErrNoRows) {
		return out, err
	}
	// no row matched: either the order is gone or its status moved on
	cur, err := p.FindOne(ctx, o.ID)
	if err != nil {
		return model.Order{}, err
	}
	return cur, ErrStatusConflict
}

func (p *Postgres) SetPayLink(ctx context.Context, id, payLink string) (model.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Order{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `UPDATE orders SET pay_link=$2, updated_at=now() WHERE id=$1 RETURNING `+orderColumns,
		id, nullIfEmpty(payLink))
	out, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return out, err
}

// HasProcessed and MarkProcessed back the webhook idempotency ledger.
func (p *Postgres) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM processed_events WHERE event_id=$1`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Postgres) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`, eventID)
	return err
}

const orderColumns = `id::text, package_id, amount, description, status, pay_link, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (model.Order, error) {
	var o model.Order
	var status string
	var payLink sql.NullString
	if err := r.Scan(&o.ID, &o.PackageID, &o.Amount, &o.Description, &status, &payLink, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, err
	}
	o.Status = model.Status(strings.TrimSpace(status))
	if !o.Status.Valid() {
		return model.Order{}, fmt.Errorf("store: order %s has unknown status %q", o.ID, status)
	}
	o.PayLink = payLink.String
	return o, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
