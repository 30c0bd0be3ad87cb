// Package main runs a demo client: it subscribes to a package, watches the
// order stream and posts a signed "paid" notification for it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"merchantpay/internal/logging"
	"merchantpay/internal/webhooks"
)

func main() {
	packageID := flag.Int("package", 1, "package id to subscribe to")
	flag.Parse()

	log := logging.New(os.Stderr, "debug", "text").GetLogger("ws_client")
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("WEBHOOK_SECRET is required to sign the demo notification")
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	body, _ := json.Marshal(map[string]int{"packageId": *packageID})
	resp, err := http.Post(base+"/subscribe", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal("subscribe", "error", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var sub struct {
		Data struct {
			OrderID string `json:"orderId"`
			PayLink string `json:"payLink"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil || sub.Data.OrderID == "" {
		log.Fatal("subscribe failed", "status", resp.StatusCode, "error", err)
	}
	orderID := sub.Data.OrderID
	log.Info("order created", "orderId", orderID, "payLink", sub.Data.PayLink)

	c, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%s/order/%s/ws", port, orderID), nil)
	if err != nil {
		log.Fatal("dial", "error", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				log.Info("stream closed", "reason", err)
				return
			}
			log.Info("WS <-", "message", string(msg))
		}
	}()

	time.Sleep(500 * time.Millisecond)
	note := map[string]any{"eventId": uuid.NewString(), "externalId": orderID, "status": "paid"}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := webhooks.Sign(secret, note, ts)
	if err != nil {
		log.Fatal("sign", "error", err)
	}
	raw, _ := json.Marshal(note)
	req, _ := http.NewRequest(http.MethodPost, base+"/webhook", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Defihub-Signature", sig)
	req.Header.Set("X-Defihub-Timestamp", ts)
	whResp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("webhook", "error", err)
	}
	_ = whResp.Body.Close()
	log.Info("notification sent", "status", whResp.StatusCode)

	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
