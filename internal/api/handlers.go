package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"merchantpay/internal/metrics"
	"merchantpay/internal/webhooks"
)

const maxBodyBytes = 1 << 20

// SubscribeHandler handles POST /subscribe
func (s *Server) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), r.URL.Path)
		return
	}
	req, err := decodeSubscribeRequest(raw)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid subscribe request", err.Error(), r.URL.Path)
		return
	}
	created, err := s.Orders.Create(r.Context(), req.PackageID)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{
		"orderId": created.Order.ID,
		"payLink": created.PayLink,
	}})
}

// WebhookHandler handles POST /webhook
func (s *Server) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeMalformed).Inc()
		writeProblem(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), "", r.URL.Path)
		return
	}
	n, err := webhooks.ParseNotification(r.Header, raw, s.Headers)
	if err != nil {
		metrics.WebhookNotifications.WithLabelValues(metrics.OutcomeMalformed).Inc()
		s.Logger.WithContext(r.Context()).Warn("notification rejected", "reason", "malformed", "error", err)
		writeError(w, r, err, true)
		return
	}
	if _, err := s.Processor.Handle(r.Context(), n); err != nil {
		writeError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// OrderListHandler handles GET /order/list
func (s *Server) OrderListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.Orders.List(r.Context())
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

// OrderByIDHandler handles GET /order/{id} and /order/{id}/ws
func (s *Server) OrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/order/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "ws") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	id := parts[0]
	if len(parts) == 2 {
		s.OrderStreamHandler(w, r, id)
		return
	}
	o, err := s.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": o})
}

// PackagesHandler handles GET /packages
func (s *Server) PackagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.Catalog.All()})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// MetricsHandler exposes the service registry in Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/subscribe", s.SubscribeHandler)
	mux.HandleFunc("/webhook", s.WebhookHandler)
	mux.HandleFunc("/order/list", s.OrderListHandler)
	mux.HandleFunc("/order/", s.OrderByIDHandler) // includes /ws
	mux.HandleFunc("/packages", s.PackagesHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", s.MetricsHandler())
	mux.HandleFunc("/debug/config", s.DebugJSON)
	return mux
}

// Handler is the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return Instrument(RateLimit(s.Routes(), s.Cfg.RateRPS, s.Cfg.RateBurst), s.Logger)
}

// HTTPServer returns the listening server for Handler. Upgraded order streams
// reset their own deadlines per frame, so WriteTimeout only bounds plain requests.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.Cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
