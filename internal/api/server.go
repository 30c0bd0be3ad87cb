package api

import (
	"context"
	"errors"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"merchantpay/internal/catalog"
	"merchantpay/internal/config"
	"merchantpay/internal/gateway"
	"merchantpay/internal/orders"
	"merchantpay/internal/store"
	"merchantpay/internal/webhooks"
)

type Server struct {
	Cfg       config.Config
	Store     store.Store
	Catalog   *catalog.Catalog
	Orders    *orders.Service
	Processor *webhooks.Processor
	Broker    EventBroker
	Headers   webhooks.HeaderNames
	Logger    glog.Logger

	closers []func() error
}

// NewServer wires the service from cfg. With no DATABASE_URL orders and the
// idempotency ledger live in memory; with one both live in Postgres. REDIS_URL
// switches order events to Redis pub/sub.
func NewServer(cfg config.Config, logs glog.LoggerProvider) (*Server, error) {
	logger := glog.Nop()
	if logs != nil {
		logger = logs.GetLogger("api")
	}
	s := &Server{
		Cfg:     cfg,
		Headers: webhooks.HeaderNames{Signature: cfg.SignatureHeader, Timestamp: cfg.TimestampHeader},
		Logger:  logger,
	}
	if s.Headers.Signature == "" || s.Headers.Timestamp == "" {
		s.Headers = webhooks.DefaultHeaderNames()
	}

	var err error
	if strings.TrimSpace(cfg.CatalogFile) != "" {
		if s.Catalog, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return nil, err
		}
	} else {
		s.Catalog = catalog.Default()
	}

	var ledger webhooks.Ledger
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s.Store = store.NewMemoryWithCapacity(cfg.OrderCapacity)
		ledger = webhooks.NewMemoryLedger(cfg.LedgerCapacity, cfg.LedgerTTL)
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := pg.Migrate(context.Background()); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		s.Store = pg
		ledger = pg
		s.closers = append(s.closers, pg.Close)
	}

	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, logger)
		if err == nil {
			s.Broker = rb
			s.closers = append(s.closers, rb.Close)
		} else {
			logger.Warn("redis broker unavailable, using in-memory broker", "error", err)
			s.Broker = NewBroker()
		}
	} else {
		s.Broker = NewBroker()
	}

	var logOrders, logWebhooks glog.Logger
	if logs != nil {
		logOrders, logWebhooks = logs.GetLogger("orders"), logs.GetLogger("webhooks")
	}
	gw := gateway.NewHTTPClient(cfg.GatewayURL, cfg.MerchantAPIKey)
	s.Orders = orders.NewService(s.Store, s.Catalog, gw, orders.Options{
		CurrencyCode:   cfg.CurrencyCode,
		OrderTimeout:   cfg.OrderTimeout,
		MerchantBotURL: cfg.MerchantBotURL,
	}, logOrders)

	verifier := webhooks.SignatureVerifier{Secret: cfg.WebhookSecret, Tolerance: cfg.TimestampTolerance}
	s.Processor = webhooks.NewProcessor(verifier, ledger, s.Store, s.Broker, logWebhooks)
	return s, nil
}

// Close releases the store and broker connections.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
