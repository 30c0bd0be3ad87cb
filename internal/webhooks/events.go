package webhooks

import "merchantpay/internal/model"

// EventPublisher fans order status changes out to interested listeners.
type EventPublisher interface {
	Publish(orderID string, evt model.OrderEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, model.OrderEvent) {}
