package orders

import (
	"errors"
	"fmt"
)

const (
	MsgSelectCustomerAndItem = "select customer and item"
	MsgQuantityNotPositive   = "quantity must be positive"
	MsgQuantityExceedsStock  = "quantity exceeds available stock"
)

var (
	ErrSubmitInFlight = errors.New("order submission already in flight")
	ErrFormExpired    = errors.New("order form expired")
)

// ValidationError is raised locally before any network call. The form
// stays usable; the user corrects the input and resubmits.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Step string

const (
	StepDecrementStock Step = "decrement_stock"
	StepCreateOrder    Step = "create_order"
)

// StepError wraps the backend failure of one saga step. When
// StockDecremented is true the backend stock is already reduced and no
// order exists: an operator has to reconcile it by hand.
type StepError struct {
	Step             Step
	StockDecremented bool
	Err              error
}

func (e *StepError) Error() string {
	if e.StockDecremented {
		return fmt.Sprintf("%s failed after stock was decremented: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
