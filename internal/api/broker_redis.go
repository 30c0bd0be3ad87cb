package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	redis "github.com/redis/go-redis/v9"

	"merchantpay/internal/model"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so every replica's
// stream subscribers see status changes applied by any replica.
type RedisBroker struct {
	rdb    *redis.Client
	logger glog.Logger

	mu   sync.Mutex
	subs map[chan model.OrderEvent]*redis.PubSub
}

func NewRedisBroker(url string, logger glog.Logger) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	if logger == nil {
		logger = glog.Nop()
	}
	return &RedisBroker{rdb: rdb, logger: logger, subs: map[chan model.OrderEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(orderID string) chan model.OrderEvent {
	ch := make(chan model.OrderEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(orderID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Warn("redis subscribe failed", "orderId", orderID, "error", err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()

	msgs := ps.Channel()
	go func() {
		defer close(ch)
		for msg := range msgs {
			var evt model.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("dropping undecodable order event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the subscription; ch is closed once its reader goroutine drains.
func (b *RedisBroker) Unsubscribe(_ string, ch chan model.OrderEvent) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(orderID string, evt model.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(orderID), data).Err(); err != nil {
		b.logger.Warn("redis publish failed", "orderId", orderID, "error", err)
	}
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	for ch, ps := range b.subs {
		_ = ps.Close()
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	return b.rdb.Close()
}

func (b *RedisBroker) chanName(orderID string) string { return "order:" + orderID }
