// Package orders creates payment orders and owns the rules for moving an
// order between statuses.
package orders

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"merchantpay/internal/catalog"
	"merchantpay/internal/gateway"
	"merchantpay/internal/metrics"
	"merchantpay/internal/model"
	"merchantpay/internal/store"
)

// Options control how orders are presented to the processor.
type Options struct {
	CurrencyCode   string
	OrderTimeout   time.Duration
	MerchantBotURL string
}

type Service struct {
	Store   store.Store
	Catalog *catalog.Catalog
	Gateway gateway.Client
	Opts    Options
	Logger  glog.Logger
}

func NewService(s store.Store, c *catalog.Catalog, gw gateway.Client, opts Options, logger glog.Logger) *Service {
	if opts.CurrencyCode == "" {
		opts.CurrencyCode = "TON"
	}
	if opts.OrderTimeout <= 0 {
		opts.OrderTimeout = time.Hour
	}
	opts.MerchantBotURL = strings.TrimRight(opts.MerchantBotURL, "/")
	if logger == nil {
		logger = glog.Nop()
	}
	return &Service{Store: s, Catalog: c, Gateway: gw, Opts: opts, Logger: logger}
}

// Created is the result of Create.
type Created struct {
	Order   model.Order
	PayLink string
}

// Create inserts a pending order for packageID and registers it with the
// processor. When the processor call fails the order stays pending in the store.
func (s *Service) Create(ctx context.Context, packageID int) (Created, error) {
	pkg, ok := s.Catalog.Lookup(packageID)
	if !ok {
		return Created{}, unknownPackage(packageID)
	}
	o, err := s.Store.Insert(ctx, model.Order{
		PackageID:   packageID,
		Amount:      pkg.Amount,
		Description: pkg.Description,
		Status:      model.StatusPending,
	})
	if err != nil {
		return Created{}, internalError(err, "failed to store order")
	}
	metrics.OrdersCreated.WithLabelValues(strconv.Itoa(packageID)).Inc()

	start := time.Now()
	resp, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		ExternalID:    o.ID,
		PayAmount:     o.Amount,
		CurrencyCode:  s.Opts.CurrencyCode,
		Timeout:       int(s.Opts.OrderTimeout / time.Second),
		Description:   o.Description,
		ReturnURL:     s.Opts.MerchantBotURL + "/success",
		FailReturnURL: s.Opts.MerchantBotURL + "/error",
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.GatewayLatency.WithLabelValues("error").Observe(latency)
		s.Logger.Error("gateway create order failed", "orderId", o.ID, "error", err)
		return Created{}, gatewayFailure(err)
	}
	metrics.GatewayLatency.WithLabelValues("ok").Observe(latency)

	o.PayLink = resp.PayLink
	if updated, err := s.Store.SetPayLink(ctx, o.ID, resp.PayLink); err != nil {
		s.Logger.Warn("store pay link failed", "orderId", o.ID, "error", err)
	} else {
		o = updated
	}
	s.Logger.Info("order created", "orderId", o.ID, "packageId", packageID, "amount", o.Amount)
	return Created{Order: o, PayLink: resp.PayLink}, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Order, error) {
	o, err := s.Store.FindOne(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Order{}, NotFound(id)
	}
	if err != nil {
		return model.Order{}, internalError(err, "failed to load order")
	}
	return o, nil
}

// List returns all orders, most recent first.
func (s *Service) List(ctx context.Context) ([]model.Order, error) {
	items, err := s.Store.FindAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list orders")
	}
	return items, nil
}
