package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
)

type OrdersHandler struct {
	Backend  *backend.Client
	Forms    *orders.SnapshotStore
	Redis    redis.Cmdable
	Producer orders.Publisher
	Service  string
	Log      logger.Logger
}

type orderFormResp struct {
	FormID    string             `json:"form_id"`
	Customers []backend.Customer `json:"customers"`
	Items     []backend.Barang   `json:"items"`
	LoadedAt  time.Time          `json:"loaded_at"`
}

// orderReq is the submitted form. OrderDate is YYYY-MM-DD; empty means today.
type orderReq struct {
	FormID string `json:"form_id"`
	orders.Selection
	OrderDate string `json:"order_date,omitempty"`
}

type quoteResp struct {
	FormID  string          `json:"form_id"`
	Total   decimal.Decimal `json:"total"`
	Valid   bool            `json:"valid"`
	Message string          `json:"message,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/form", h.openForm)
	r.Post("/orders/quote", h.quote)
	r.Post("/orders", h.submit)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := clientFor(r, h.Backend).ListOrders(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

// openForm loads customers and items once and parks the snapshot in Redis
// for the quote and submit calls that follow.
func (h *OrdersHandler) openForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	snap, err := orders.LoadSnapshot(r.Context(), clientFor(r, h.Backend))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	formID, err := h.Forms.Save(r.Context(), sess.ID, snap)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orderFormResp{FormID: formID, Customers: snap.Customers, Items: snap.Items, LoadedAt: snap.LoadedAt})
}

func (h *OrdersHandler) quote(w http.ResponseWriter, r *http.Request) {
	form, formID, err := h.loadForm(w, r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	resp := quoteResp{FormID: formID, Total: form.Total(), Valid: true}
	if err := form.Check(); err != nil {
		resp.Valid, resp.Message = false, err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) submit(w http.ResponseWriter, r *http.Request) {
	form, formID, err := h.loadForm(w, r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, _ := session.FromContext(r.Context())

	lock := fmt.Sprintf(redisx.KeySubmitLock, sess.ID, formID)
	acquired, err := redisx.MarkOnce(r.Context(), h.Redis, lock, redisx.TTLSubmitLock)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !acquired {
		writeError(w, r, h.Log, orders.ErrSubmitInFlight)
		return
	}
	defer h.Redis.Del(context.WithoutCancel(r.Context()), lock)

	order, err := form.Submit(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	// the snapshot's stock is stale now; the next use of this form id reloads it
	if err := h.Forms.Delete(context.WithoutCancel(r.Context()), sess.ID, formID); err != nil {
		h.Log.WithContext(r.Context()).Warn("order form delete failed", logger.Error(err))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "order created", "data": order, "form_id": formID})
}

// loadForm rebuilds the form from its stored snapshot. A missing or expired
// form id gets a fresh snapshot from the backend, stored under the same id.
func (h *OrdersHandler) loadForm(w http.ResponseWriter, r *http.Request) (*orders.Form, string, error) {
	var req orderReq
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, "", err
	}
	if req.OrderDate != "" {
		d, err := time.Parse(time.DateOnly, req.OrderDate)
		if err != nil {
			return nil, "", &orders.ValidationError{Message: "order_date must be YYYY-MM-DD"}
		}
		req.Selection.OrderDate = d
	}

	sess, _ := session.FromContext(r.Context())
	snap, formID, err := h.snapshot(r, sess.ID, req.FormID)
	if err != nil {
		return nil, "", err
	}
	form := orders.NewForm(clientFor(r, h.Backend), snap,
		orders.WithPublisher(h.Producer, h.Service),
		orders.WithLogger(h.Log),
		orders.WithActor(sess.User.Username),
		orders.WithTraceID(middleware.GetReqID(r.Context())),
	)
	form.Apply(req.Selection)
	return form, formID, nil
}

func (h *OrdersHandler) snapshot(r *http.Request, sessionID, formID string) (orders.Snapshot, string, error) {
	ctx := r.Context()
	if formID != "" {
		snap, err := h.Forms.Load(ctx, sessionID, formID)
		if !errors.Is(err, orders.ErrFormExpired) {
			return snap, formID, err
		}
	}
	snap, err := orders.LoadSnapshot(ctx, clientFor(r, h.Backend))
	if err != nil {
		return orders.Snapshot{}, "", err
	}
	if formID == "" {
		formID, err = h.Forms.Save(ctx, sessionID, snap)
	} else {
		err = h.Forms.Put(ctx, sessionID, formID, snap)
	}
	if err != nil {
		return orders.Snapshot{}, "", err
	}
	return snap, formID, nil
}
