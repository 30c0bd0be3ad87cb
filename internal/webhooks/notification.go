package webhooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// HeaderNames are the transport headers carrying the signature and timestamp.
type HeaderNames struct {
	Signature string
	Timestamp string
}

func DefaultHeaderNames() HeaderNames {
	return HeaderNames{Signature: "X-Defihub-Signature", Timestamp: "X-Defihub-Timestamp"}
}

// Notification is one inbound delivery from the processor.
type Notification struct {
	EventID    string
	ExternalID string
	Status     string
	Type       string
	Body       map[string]any
	Timestamp  string
	Signature  string
}

// ParseNotification decodes raw as a JSON object and lifts out the fields the
// processor needs. Both the flat shape {eventId, externalId, status} and the
// nested shape {eventId, type, payload: {externalId, status}} are accepted.
// Numbers keep their original text so re-serialization signs the same bytes.
func ParseNotification(h http.Header, raw []byte, names HeaderNames) (Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return Notification{}, malformed(err)
	}
	if body == nil {
		return Notification{}, malformed(errors.New("webhooks: body is not an object"))
	}
	if dec.More() {
		return Notification{}, malformed(errors.New("webhooks: trailing data after body"))
	}

	n := Notification{
		Body:      body,
		EventID:   stringField(body, "eventId"),
		Type:      stringField(body, "type"),
		Timestamp: strings.TrimSpace(h.Get(names.Timestamp)),
		Signature: strings.TrimSpace(h.Get(names.Signature)),
	}
	n.ExternalID = stringField(body, "externalId")
	n.Status = stringField(body, "status")
	if payload, ok := body["payload"].(map[string]any); ok {
		if n.ExternalID == "" {
			n.ExternalID = stringField(payload, "externalId")
		}
		if n.Status == "" {
			n.Status = stringField(payload, "status")
		}
	}
	if n.Status == "" {
		n.Status = n.Type
	}

	if n.EventID == "" {
		return Notification{}, malformed(errors.New("webhooks: eventId is required"))
	}
	if n.ExternalID == "" {
		return Notification{}, malformed(errors.New("webhooks: externalId is required"))
	}
	return n, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}
