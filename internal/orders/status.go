package orders

// State is where a form is in the submission sequence.
type State string

const (
	StateIdle              State = "IDLE"
	StateValidating        State = "VALIDATING"
	StateDecrementingStock State = "DECREMENTING_STOCK"
	StateCreatingOrder     State = "CREATING_ORDER"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
)

// Done and Failed may start over: every failure leaves the form resubmittable.
var validNext = map[State]map[State]bool{
	StateIdle:              {StateValidating: true},
	StateValidating:        {StateDecrementingStock: true, StateFailed: true},
	StateDecrementingStock: {StateCreatingOrder: true, StateFailed: true},
	StateCreatingOrder:     {StateDone: true, StateFailed: true},
	StateDone:              {StateValidating: true},
	StateFailed:            {StateValidating: true},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

// InFlight reports whether a remote call may be outstanding in s.
func (s State) InFlight() bool {
	return s == StateDecrementingStock || s == StateCreatingOrder
}
