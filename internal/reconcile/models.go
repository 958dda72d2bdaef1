package reconcile

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

var (
	ErrNotFound        = errors.New("reconciliation case not found")
	ErrAlreadyResolved = errors.New("reconciliation case already resolved")
)

// Case is one order whose stock was decremented on the backend but which
// the backend never created. It stays OPEN until an operator fixes the
// stock or the order by hand and resolves it here.
type Case struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	ItemID        string          `json:"item_id"`
	CustomerID    string          `json:"customer_id"`
	Quantity      int             `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	OrderDate     string          `json:"order_date"`
	Reason        string          `json:"reason"`
	BackendStatus int             `json:"backend_status,omitempty"`
	SubmittedBy   string          `json:"submitted_by,omitempty"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy    *string         `json:"resolved_by,omitempty"`
}
