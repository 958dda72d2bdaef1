package orders

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
)

// Backend is the slice of the REST client the order flow needs.
type Backend interface {
	ListCustomers(ctx context.Context) ([]backend.Customer, error)
	ListBarang(ctx context.Context) ([]backend.Barang, error)
	DecrementStock(ctx context.Context, id backend.ID, qty int) error
	CreateOrder(ctx context.Context, in backend.OrderInput) (backend.Order, error)
}

// Snapshot is the form's cached copy of customers and items. It is written
// once by LoadSnapshot and may be stale relative to the backend.
type Snapshot struct {
	Customers []backend.Customer `json:"customers"`
	Items     []backend.Barang   `json:"items"`
	LoadedAt  time.Time          `json:"loaded_at"`
}

func LoadSnapshot(ctx context.Context, b Backend) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cs, err := b.ListCustomers(gctx)
		snap.Customers = cs
		return err
	})
	g.Go(func() error {
		items, err := b.ListBarang(gctx)
		snap.Items = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	snap.LoadedAt = time.Now().UTC()
	return snap, nil
}

func (s Snapshot) Customer(id backend.ID) (backend.Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return backend.Customer{}, false
}

func (s Snapshot) Item(id backend.ID) (backend.Barang, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return backend.Barang{}, false
}
