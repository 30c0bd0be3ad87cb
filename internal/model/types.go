package model

import "time"

// Status is the payment state of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

// Valid reports whether s is one of the known order states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusExpired:
		return true
	}
	return false
}

// Order is a merchant-side payment order. ID, PackageID, Amount and Description
// are fixed at creation; Status only moves through the order state machine.
type Order struct {
	ID          string    `json:"id"`
	PackageID   int       `json:"packageId"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	PayLink     string    `json:"payLink,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OrderEvent is published whenever an order changes status.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	EventID   string    `json:"eventId,omitempty"`
	Timestamp time.Time `json:"ts"`
}

const EventOrderStatus = "order.status"
