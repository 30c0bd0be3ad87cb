package api

import (
	"sync"

	"merchantpay/internal/model"
)

// EventBroker fans order events out to stream subscribers.
type EventBroker interface {
	Subscribe(orderID string) chan model.OrderEvent
	Unsubscribe(orderID string, ch chan model.OrderEvent)
	Publish(orderID string, evt model.OrderEvent)
}

// Broker is the in-process EventBroker. Slow subscribers miss events rather
// than block the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.OrderEvent]struct{} // orderId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.OrderEvent]struct{}{}}
}

func (b *Broker) Subscribe(orderID string) chan model.OrderEvent {
	ch := make(chan model.OrderEvent, 8)
	b.mu.Lock()
	if b.subs[orderID] == nil {
		b.subs[orderID] = map[chan model.OrderEvent]struct{}{}
	}
	b.subs[orderID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(orderID string, ch chan model.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[orderID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, orderID)
	}
	close(ch)
}

func (b *Broker) Publish(orderID string, evt model.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[orderID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
