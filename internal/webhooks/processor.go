package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"merchantpay/internal/metrics"
	"merchantpay/internal/model"
	"merchantpay/internal/orders"
	"merchantpay/internal/store"
)

// Verifier decides whether a notification is authentic. It returns false for
// a mismatch and an error only when the input cannot be checked.
type Verifier interface {
	Verify(n Notification) (bool, error)
}

// OrderStore is the part of the order store the processor needs. Update is a
// compare-and-set on status and returns store.ErrStatusConflict when it loses.
type OrderStore interface {
	FindOne(ctx context.Context, id string) (model.Order, error)
	Update(ctx context.Context, o model.Order, from model.Status) (model.Order, error)
}

// Result describes what Handle did with a notification.
type Result struct {
	Duplicate bool
	Changed   bool
	Order     model.Order
}

type Processor struct {
	Verifier Verifier
	Ledger   Ledger
	Store    OrderStore
	Events   EventPublisher
	Logger   glog.Logger
	Now      func() time.Time
}

func NewProcessor(verifier Verifier, ledger Ledger, s OrderStore, events EventPublisher, logger glog.Logger) *Processor {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = glog.Nop()
	}
	return &Processor{
		Verifier: verifier,
		Ledger:   ledger,
		Store:    s,
		Events:   events,
		Logger:   logger,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle admits and applies one notification: ledger check, signature check,
// order lookup, transition, persist, ledger mark. The ledger is marked only
// after the order is persisted, so any failure leaves the event retryable.
func (p *Processor) Handle(ctx context.Context, n Notification) (Result, error) {
	if p == nil || p.Verifier == nil || p.Ledger == nil || p.Store == nil {
		return Result{}, processingFailure(fmt.Errorf("webhooks: processor requires verifier, ledger and store"))
	}
	log := p.Logger.WithContext(ctx)

	seen, err := p.Ledger.HasProcessed(ctx, n.EventID)
	if err != nil {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, processingFailure(err)
	}
	if seen {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		log.Debug("duplicate notification", "eventId", n.EventID)
		return Result{Duplicate: true}, nil
	}

	ok, err := p.Verifier.Verify(n)
	if err != nil {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeMalformed).Inc()
		log.Warn("notification rejected", "eventId", n.EventID, "reason", "malformed", "error", err)
		return Result{}, malformed(err)
	}
	if !ok {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		log.Warn("notification rejected", "eventId", n.EventID, "reason", "signature")
		return Result{}, invalidSignature()
	}

	order, err := p.Store.FindOne(ctx, n.ExternalID)
	if errors.Is(err, store.ErrNotFound) {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeNotFound).Inc()
		log.Warn("notification for unknown order", "eventId", n.EventID, "externalId", n.ExternalID)
		return Result{}, orders.NotFound(n.ExternalID)
	}
	if err != nil {
		return p.fail(log, n, err)
	}

	next, changed := orders.Apply(order, n.Status, p.now())
	if changed {
		stored, err := p.Store.Update(ctx, next, order.Status)
		switch {
		case errors.Is(err, store.ErrStatusConflict):
			// a concurrent delivery settled the order first
			changed = false
			next = stored
		case errors.Is(err, store.ErrNotFound):
			metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return Result{}, orders.NotFound(n.ExternalID)
		case err != nil:
			return p.fail(log, n, err)
		default:
			next = stored
		}
	}

	if err := p.Ledger.MarkProcessed(ctx, n.EventID); err != nil {
		return p.fail(log, n, err)
	}

	if !changed {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeNoop).Inc()
		log.Info("notification acknowledged without change", "eventId", n.EventID, "orderId", next.ID, "status", next.Status, "reported", n.Status)
		return Result{Order: next}, nil
	}

	metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeApplied).Inc()
	metrics.OrderTransitions.WithLabelValues(string(next.Status)).Inc()
	log.Info("order status changed", "eventId", n.EventID, "orderId", next.ID, "from", order.Status, "to", next.Status)
	p.Events.Publish(next.ID, model.OrderEvent{
		Type:      model.EventOrderStatus,
		OrderID:   next.ID,
		Status:    next.Status,
		EventID:   n.EventID,
		Timestamp: p.now(),
	})
	return Result{Changed: true, Order: next}, nil
}

func (p *Processor) fail(log glog.Logger, n Notification, err error) (Result, error) {
	metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeFailed).Inc()
	log.Error("notification processing failed", "eventId", n.EventID, "externalId", n.ExternalID, "error", err)
	return Result{}, processingFailure(err)
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
