package orders

import (
	"strings"
	"time"

	"merchantpay/internal/model"
)

// reportedTarget maps a processor-reported payment state onto the order state
// it asks for. Unknown states map to "".
func reportedTarget(reported string) model.Status {
	s := strings.ToLower(strings.TrimSpace(reported))
	s = strings.TrimPrefix(s, "order.")
	switch s {
	case "paid":
		return model.StatusPaid
	case "expired":
		return model.StatusExpired
	}
	return ""
}

// Transition returns the status an order in current moves to when the
// processor reports reported, and whether that is a change. Only pending
// orders move; paid and expired are terminal, so repeats are no-ops.
func Transition(current model.Status, reported string) (model.Status, bool) {
	target := reportedTarget(reported)
	if target == "" || current != model.StatusPending {
		return current, false
	}
	return target, true
}

// Apply runs Transition on o and stamps UpdatedAt when the status changes.
func Apply(o model.Order, reported string, now time.Time) (model.Order, bool) {
	next, changed := Transition(o.Status, reported)
	if !changed {
		return o, false
	}
	o.Status = next
	o.UpdatedAt = now
	return o, true
}
