package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSubmitted         = "OrderSubmitted"
	EventReconciliationRequired = "ReconciliationRequired"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the constants above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "inventory-dashboard"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // item id
	Payload       json.RawMessage `json:"payload"`
}

type OrderSubmittedPayload struct {
	OrderID     string `json:"order_id"`
	CustomerID  string `json:"customer_id"`
	ItemID      string `json:"item_id"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
	OrderDate   string `json:"order_date"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// ReconciliationRequiredPayload describes stock that was decremented for an
// order the backend never created.
type ReconciliationRequiredPayload struct {
	CustomerID    string `json:"customer_id"`
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
	Total         string `json:"total"`
	OrderDate     string `json:"order_date"`
	Reason        string `json:"reason"`
	BackendStatus int    `json:"backend_status,omitempty"`
	SubmittedBy   string `json:"submitted_by,omitempty"`
}
