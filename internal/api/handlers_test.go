package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"merchantpay/internal/config"
	"merchantpay/internal/model"
	"merchantpay/internal/webhooks"
)

const testSecret = "whsec"

func newTestServer(t *testing.T) (*Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/order" || r.Header.Get("merchant-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"payLink": "https://pay.example/" + in["externalId"].(string)}})
	}))
	t.Cleanup(gw.Close)

	cfg := config.Defaults()
	cfg.GatewayURL = gw.URL
	cfg.MerchantAPIKey = "key"
	cfg.MerchantBotURL = "http://bot"
	cfg.WebhookSecret = testSecret
	s, err := NewServer(cfg, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, &calls
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func subscribe(t *testing.T, s *Server, packageID int) string {
	t.Helper()
	body, _ := json.Marshal(map[string]int{"packageId": packageID})
	rr := do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/subscribe", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("subscribe: %d %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Data struct {
			OrderID string `json:"orderId"`
			PayLink string `json:"payLink"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Data.OrderID == "" || !strings.HasSuffix(out.Data.PayLink, out.Data.OrderID) {
		t.Fatalf("unexpected subscribe response: %s", rr.Body.String())
	}
	return out.Data.OrderID
}

func webhookRequest(t *testing.T, secret, eventID, orderID, status string) *http.Request {
	t.Helper()
	body := map[string]any{"eventId": eventID, "externalId": orderID, "status": status}
	ts := "1700000000"
	sig, err := webhooks.Sign(secret, body, ts)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Defihub-Signature", sig)
	req.Header.Set("X-Defihub-Timestamp", ts)
	return req
}

func getOrder(t *testing.T, s *Server, id string) (int, model.Order) {
	t.Helper()
	rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/order/"+id, nil))
	var out struct {
		Data model.Order `json:"data"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	return rr.Code, out.Data
}

func TestHealthReady(t *testing.T) {
	s, _ := newTestServer(t)
	if rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	if rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestSubscribeCreatesPendingOrder(t *testing.T) {
	s, calls := newTestServer(t)
	id := subscribe(t, s, 1)
	code, o := getOrder(t, s, id)
	if code != 200 || o.Status != model.StatusPending || o.Amount != "0.01" || o.PayLink == "" {
		t.Fatalf("unexpected order %d %+v", code, o)
	}
	if calls.Load() != 1 {
		t.Fatalf("gateway calls = %d", calls.Load())
	}
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	s, calls := newTestServer(t)
	for _, body := range []string{`{}`, `{"packageId":"1"}`, `not json`, `{"packageId":9}`} {
		rr := do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d", body, rr.Code)
		}
	}
	if calls.Load() != 0 {
		t.Fatal("gateway should not be called for rejected input")
	}
}

func TestWebhookPaidThenDuplicate(t *testing.T) {
	s, _ := newTestServer(t)
	id := subscribe(t, s, 1)

	rr := do(t, s.Handler(), webhookRequest(t, testSecret, "evt-1", id, "paid"))
	if rr.Code != 200 || strings.TrimSpace(rr.Body.String()) != `{"ok":true}` {
		t.Fatalf("webhook: %d %s", rr.Code, rr.Body.String())
	}
	if _, o := getOrder(t, s, id); o.Status != model.StatusPaid {
		t.Fatalf("status %q", o.Status)
	}
	if rr := do(t, s.Handler(), webhookRequest(t, testSecret, "evt-1", id, "paid")); rr.Code != 200 {
		t.Fatalf("duplicate: %d", rr.Code)
	}
	if rr := do(t, s.Handler(), webhookRequest(t, testSecret, "evt-2", id, "paid")); rr.Code != 200 {
		t.Fatalf("second event: %d", rr.Code)
	}
}

func TestWebhookRejections(t *testing.T) {
	s, _ := newTestServer(t)
	id := subscribe(t, s, 2)

	rr := do(t, s.Handler(), webhookRequest(t, "wrong", "evt-1", id, "paid"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", rr.Code)
	}
	var p Problem
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if p.Detail != "" || p.Code != "" {
		t.Fatalf("rejection should be opaque: %+v", p)
	}
	if _, o := getOrder(t, s, id); o.Status != model.StatusPending {
		t.Fatalf("status changed to %q", o.Status)
	}

	if rr := do(t, s.Handler(), webhookRequest(t, testSecret, "evt-2", "00000000-0000-0000-0000-000000000000", "paid")); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown order: %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"status":"paid"}`))
	if rr := do(t, s.Handler(), req); rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed: %d", rr.Code)
	}
}

func TestOrderListNewestFirst(t *testing.T) {
	s, _ := newTestServer(t)
	first := subscribe(t, s, 1)
	second := subscribe(t, s, 3)
	rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/order/list", nil))
	var out struct {
		Data []model.Order `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != 2 || out.Data[0].ID != second || out.Data[1].ID != first {
		t.Fatalf("unexpected list: %+v", out.Data)
	}
	if code, _ := getOrder(t, s, "missing"); code != http.StatusNotFound {
		t.Fatalf("missing order: %d", code)
	}
}

func TestMetricsAndDebug(t *testing.T) {
	s, _ := newTestServer(t)
	if rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil)); rr.Code != 200 {
		t.Fatalf("metrics: %d", rr.Code)
	}
	rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/debug/config", nil))
	if rr.Code != 200 || strings.Contains(rr.Body.String(), testSecret) {
		t.Fatalf("debug config: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), 0.001, 1)
	if rr := do(t, h, httptest.NewRequest(http.MethodGet, "/order/list", nil)); rr.Code != 200 {
		t.Fatalf("first request: %d", rr.Code)
	}
	if rr := do(t, h, httptest.NewRequest(http.MethodGet, "/order/list", nil)); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d", rr.Code)
	}
	if rr := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != 200 {
		t.Fatalf("health is exempt: %d", rr.Code)
	}
}

func TestHTTPServerTimeouts(t *testing.T) {
	s, _ := newTestServer(t)
	srv := s.HTTPServer()
	if srv.Addr != ":3001" {
		t.Fatalf("addr %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout != 5*time.Second || srv.ReadTimeout != 10*time.Second ||
		srv.WriteTimeout != 15*time.Second || srv.IdleTimeout != 120*time.Second {
		t.Fatalf("unexpected timeouts: header=%v read=%v write=%v idle=%v",
			srv.ReadHeaderTimeout, srv.ReadTimeout, srv.WriteTimeout, srv.IdleTimeout)
	}
}

func TestOrderStreamDeliversStatusChange(t *testing.T) {
	s, _ := newTestServer(t)
	id := subscribe(t, s, 1)
	// serve with the production timeouts so the stream runs under them
	ts := httptest.NewUnstartedServer(s.Handler())
	prod := s.HTTPServer()
	ts.Config.ReadHeaderTimeout = prod.ReadHeaderTimeout
	ts.Config.ReadTimeout = prod.ReadTimeout
	ts.Config.WriteTimeout = prod.WriteTimeout
	ts.Start()
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/order/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap streamMessage
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Type != msgSnapshot || snap.Order == nil || snap.Order.Status != model.StatusPending {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if rr := do(t, s.Handler(), webhookRequest(t, testSecret, "evt-1", id, "paid")); rr.Code != 200 {
		t.Fatalf("webhook: %d", rr.Code)
	}
	var evt streamMessage
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != model.EventOrderStatus || evt.Event == nil || evt.Event.Status != model.StatusPaid {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}

func TestOrderStreamUnknownOrder(t *testing.T) {
	s, _ := newTestServer(t)
	rr := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/order/nope/ws", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
}
