package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	kafkax "github.com/ariefcatur/inventory-dashboard/internal/kafka"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Selection is what the user picked on the order form.
type Selection struct {
	CustomerID backend.ID `json:"customer_id"`
	ItemID     backend.ID `json:"id_barang"`
	Quantity   int        `json:"jumlah_barang"`
	OrderDate  time.Time  `json:"-"`
}

// Form is one order form instance: a snapshot of customers and items plus
// the current selection. At most one Submit runs at a time.
type Form struct {
	backend  Backend
	snapshot Snapshot

	events   Publisher
	producer string
	actor    string
	traceID  string
	log      logger.Logger
	now      func() time.Time

	mu    sync.Mutex
	sel   Selection
	price decimal.Decimal
	total decimal.Decimal
	state State

	inFlight atomic.Bool
}

type Option func(*Form)

func WithPublisher(p Publisher, producer string) Option {
	return func(f *Form) { f.events, f.producer = p, producer }
}

func WithLogger(l logger.Logger) Option { return func(f *Form) { f.log = l } }

func WithClock(now func() time.Time) Option { return func(f *Form) { f.now = now } }

// WithActor records who submits, for events only.
func WithActor(username string) Option { return func(f *Form) { f.actor = username } }

func WithTraceID(id string) Option { return func(f *Form) { f.traceID = id } }

func NewForm(b Backend, snap Snapshot, opts ...Option) *Form {
	f := &Form{
		backend:  b,
		snapshot: snap,
		log:      logger.Nop(),
		now:      time.Now,
		state:    StateIdle,
		sel:      Selection{Quantity: 1},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Form) Snapshot() Snapshot { return f.snapshot }

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) SelectCustomer(id backend.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.CustomerID = id
}

// SelectItem picks an item and recomputes the total from its cached price.
func (f *Form) SelectItem(id backend.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.ItemID = id
	f.price = decimal.Zero
	if it, ok := f.snapshot.Item(id); ok {
		f.price = it.Price
	}
	f.recompute()
}

func (f *Form) SetQuantity(q int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Quantity = q
	f.recompute()
}

func (f *Form) SetOrderDate(d time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.OrderDate = d
}

// Apply sets the whole selection at once, as a submitted browser form does.
func (f *Form) Apply(sel Selection) {
	f.SelectCustomer(sel.CustomerID)
	f.SelectItem(sel.ItemID)
	f.SetQuantity(sel.Quantity)
	f.SetOrderDate(sel.OrderDate)
}

func (f *Form) Total() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *Form) recompute() {
	f.total = f.price.Mul(decimal.NewFromInt(int64(f.sel.Quantity)))
}

// Check runs the local preconditions without submitting.
func (f *Form) Check() error {
	f.mu.Lock()
	sel := f.sel
	f.mu.Unlock()
	_, err := f.validate(sel)
	return err
}

func (f *Form) validate(sel Selection) (backend.Barang, error) {
	if sel.CustomerID == "" || sel.ItemID == "" {
		return backend.Barang{}, &ValidationError{Message: MsgSelectCustomerAndItem}
	}
	if _, ok := f.snapshot.Customer(sel.CustomerID); !ok {
		return backend.Barang{}, &ValidationError{Message: MsgSelectCustomerAndItem}
	}
	item, ok := f.snapshot.Item(sel.ItemID)
	if !ok {
		return backend.Barang{}, &ValidationError{Message: MsgSelectCustomerAndItem}
	}
	if sel.Quantity <= 0 {
		return backend.Barang{}, &ValidationError{Message: MsgQuantityNotPositive}
	}
	if sel.Quantity > item.Stock {
		return backend.Barang{}, &ValidationError{Message: MsgQuantityExceedsStock}
	}
	return item, nil
}

func (f *Form) transition(to State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !CanTransition(f.state, to) {
		panic(fmt.Sprintf("orders: invalid transition %s -> %s", f.state, to))
	}
	f.state = to
}

// Submit validates the selection against the snapshot, decrements stock,
// then creates the order. The two remote calls are not atomic: if the
// second fails the stock stays decremented and the returned *StepError has
// StockDecremented set. Nothing is retried.
func (f *Form) Submit(ctx context.Context) (backend.Order, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return backend.Order{}, ErrSubmitInFlight
	}
	defer f.inFlight.Store(false)

	f.transition(StateValidating)

	f.mu.Lock()
	sel := f.sel
	f.mu.Unlock()
	if sel.OrderDate.IsZero() {
		sel.OrderDate = f.now()
	}

	item, err := f.validate(sel)
	if err != nil {
		f.transition(StateFailed)
		return backend.Order{}, err
	}
	if err := ctx.Err(); err != nil {
		f.transition(StateFailed)
		return backend.Order{}, err
	}

	// once the decrement is issued the sequence runs to completion
	ctx = context.WithoutCancel(ctx)

	in := backend.OrderInput{
		CustomerID: sel.CustomerID,
		BarangID:   item.ID,
		Quantity:   sel.Quantity,
		Total:      item.Price.Mul(decimal.NewFromInt(int64(sel.Quantity))),
		OrderDate:  sel.OrderDate.Format(time.DateOnly),
	}
	log := f.log.WithContext(ctx).WithFields(
		logger.String("customer_id", in.CustomerID.String()),
		logger.String("item_id", in.BarangID.String()),
		logger.Int("quantity", in.Quantity),
	)

	// the create body has to encode before any stock moves
	if _, err := json.Marshal(in); err != nil {
		f.transition(StateFailed)
		return backend.Order{}, fmt.Errorf("encode order: %w", err)
	}

	f.transition(StateDecrementingStock)
	if err := f.backend.DecrementStock(ctx, item.ID, sel.Quantity); err != nil {
		f.transition(StateFailed)
		log.Warn("stock decrement rejected", logger.Error(err))
		return backend.Order{}, &StepError{Step: StepDecrementStock, Err: err}
	}

	f.transition(StateCreatingOrder)
	order, err := f.backend.CreateOrder(ctx, in)
	if err != nil {
		f.transition(StateFailed)
		log.Error("order not created after stock decrement, manual reconciliation required", logger.Error(err))
		f.publishReconciliation(in, err)
		return backend.Order{}, &StepError{Step: StepCreateOrder, StockDecremented: true, Err: err}
	}

	f.transition(StateDone)
	log.Info("order submitted", logger.String("order_id", order.ID.String()), logger.String("total", in.Total.String()))
	f.publishSubmitted(in, order)
	return order, nil
}

func (f *Form) publishSubmitted(in backend.OrderInput, order backend.Order) {
	f.publish(TopicOrderSubmitted, EventOrderSubmitted, in.BarangID, OrderSubmittedPayload{
		OrderID:     order.ID.String(),
		CustomerID:  in.CustomerID.String(),
		ItemID:      in.BarangID.String(),
		Quantity:    in.Quantity,
		Total:       in.Total.String(),
		OrderDate:   in.OrderDate,
		SubmittedBy: f.actor,
	})
}

func (f *Form) publishReconciliation(in backend.OrderInput, cause error) {
	p := ReconciliationRequiredPayload{
		CustomerID:  in.CustomerID.String(),
		ItemID:      in.BarangID.String(),
		Quantity:    in.Quantity,
		Total:       in.Total.String(),
		OrderDate:   in.OrderDate,
		Reason:      cause.Error(),
		SubmittedBy: f.actor,
	}
	var re *backend.RemoteError
	if errors.As(cause, &re) {
		p.Reason = re.Message
		p.BackendStatus = re.Status
	}
	f.publish(TopicReconciliation, EventReconciliationRequired, in.BarangID, p)
}

func (f *Form) publish(topic, eventType string, itemID backend.ID, payload any) {
	if f.events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    f.now().UTC(),
		Producer:      f.producer,
		TraceID:       f.traceID,
		CorrelationID: itemID.String(),
		Payload:       kafkax.MustMarshal(payload),
	}
	f.events.Publish(topic, PartitionKey(itemID.String()), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
