package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
)

// ResourceHandler proxies the plain CRUD screens to the backend with the
// caller's credential. The backend validates and owns every record.
type ResourceHandler struct {
	Backend *backend.Client
	Log     logger.Logger
}

type crud[T, In any] struct {
	list   func(*backend.Client, context.Context) ([]T, error)
	create func(*backend.Client, context.Context, In) (T, error)
	update func(*backend.Client, context.Context, backend.ID, In) (T, error)
	remove func(*backend.Client, context.Context, backend.ID) error
}

func (h *ResourceHandler) Register(r chi.Router) {
	mount(r, h, "/users", crud[backend.User, backend.UserInput]{
		(*backend.Client).ListUsers, (*backend.Client).CreateUser, (*backend.Client).UpdateUser, (*backend.Client).DeleteUser,
	})
	mount(r, h, "/categories", crud[backend.Category, backend.CategoryInput]{
		(*backend.Client).ListCategories, (*backend.Client).CreateCategory, (*backend.Client).UpdateCategory, (*backend.Client).DeleteCategory,
	})
	mount(r, h, "/barang", crud[backend.Barang, backend.BarangInput]{
		(*backend.Client).ListBarang, (*backend.Client).CreateBarang, (*backend.Client).UpdateBarang, (*backend.Client).DeleteBarang,
	})
	mount(r, h, "/customers", crud[backend.Customer, backend.CustomerInput]{
		(*backend.Client).ListCustomers, (*backend.Client).CreateCustomer, (*backend.Client).UpdateCustomer, (*backend.Client).DeleteCustomer,
	})
}

func mount[T, In any](r chi.Router, h *ResourceHandler, path string, ops crud[T, In]) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			rows, err := ops.list(clientFor(r, h.Backend), r.Context())
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": rows})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			row, err := ops.create(clientFor(r, h.Backend), r.Context(), in)
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"data": row})
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			row, err := ops.update(clientFor(r, h.Backend), r.Context(), backend.ID(chi.URLParam(r, "id")), in)
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": row})
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := ops.remove(clientFor(r, h.Backend), r.Context(), backend.ID(chi.URLParam(r, "id"))); err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}
