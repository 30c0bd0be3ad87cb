package store

import (
	"context"
	"errors"

	"merchantpay/internal/model"
)

// Store is the order persistence interface used by the API server.
type Store interface {
	// Insert assigns an ID and timestamps, then persists the order.
	Insert(ctx context.Context, o model.Order) (model.Order, error)
	FindOne(ctx context.Context, id string) (model.Order, error)
	// FindAll returns orders most-recent-first.
	FindAll(ctx context.Context) ([]model.Order, error)
	// Update moves the order o.ID to o.Status only if its stored status is
	// still from; otherwise it returns ErrStatusConflict and writes nothing.
	Update(ctx context.Context, o model.Order, from model.Status) (model.Order, error)
	// SetPayLink stores the processor pay link without touching status.
	SetPayLink(ctx context.Context, id, payLink string) (model.Order, error)
}

var (
	ErrNotFound       = errors.New("not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)
