package webhook

import (
	"errors"
	"strconv"
)

// EventChargeSuccess is the only provider event that mutates state. Every
// other event name is acknowledged and ignored.
const EventChargeSuccess = "charge.success"

// Result messages returned by the processor.
const (
	MsgEventNotHandled              = "Event not handled"
	MsgPaymentAlreadyProcessed      = "Payment already processed"
	MsgOrderPaymentProcessed        = "Order payment processed successfully"
	MsgPaymentNotFound              = "Payment not found"
	MsgSubscriptionAlreadyProcessed = "Subscription payment already processed"
	MsgSubscriptionPaymentProcessed = "Subscription payment processed successfully"
)

// ErrInvalidSignature is returned when the defensive in-processor signature
// check fails. It must never be retried.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is one provider webhook delivery. The raw payload bytes stay the
// source of truth (signatures and dead letters are computed over them); Event
// is the parsed view.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the charge details of an event.
type EventData struct {
	Reference string                 `json:"reference"`
	Amount    int64                  `json:"amount"`
	Currency  string                 `json:"currency"`
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Result is the processor outcome for a handled (or ignored) event.
type Result struct {
	Message string `json:"message"`
}

type hintKind int

const (
	hintUnresolved hintKind = iota
	hintSubscription
	hintShop
)

// resolutionHint is the parsed form of the loosely-structured provider
// metadata: it names at most one way to resolve a subscription. Parsing
// happens once, the processor never inspects metadata fields ad hoc.
type resolutionHint struct {
	kind hintKind
	id   uint
}

// resolveHint inspects event metadata for a subscription or shop identifier.
// Both camelCase and snake_case keys occur in the wild, and numeric values
// arrive as JSON numbers or strings depending on the provider SDK.
func resolveHint(metadata map[string]interface{}) resolutionHint {
	for _, key := range []string{"subscriptionId", "subscription_id"} {
		if id, ok := metadataID(metadata[key]); ok {
			return resolutionHint{kind: hintSubscription, id: id}
		}
	}
	for _, key := range []string{"shopId", "shop_id"} {
		if id, ok := metadataID(metadata[key]); ok {
			return resolutionHint{kind: hintShop, id: id}
		}
	}
	return resolutionHint{kind: hintUnresolved}
}

func metadataID(v interface{}) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return uint(n), true
		}
	case string:
		id, err := strconv.ParseUint(n, 10, strconv.IntSize)
		if err == nil && id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}
