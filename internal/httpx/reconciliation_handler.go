package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/reconcile"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
)

// Reconciler is satisfied by *reconcile.Service.
type Reconciler interface {
	Open(ctx context.Context) ([]reconcile.Case, error)
	All(ctx context.Context) ([]reconcile.Case, error)
	Resolve(ctx context.Context, id, by string) (reconcile.Case, error)
}

type ReconciliationHandler struct {
	Cases Reconciler
	Log   logger.Logger
}

func (h *ReconciliationHandler) Register(r chi.Router) {
	r.Get("/reconciliation", h.list)
	r.Post("/reconciliation/{id}/resolve", h.resolve)
}

// list returns open cases; ?status=all includes resolved ones.
func (h *ReconciliationHandler) list(w http.ResponseWriter, r *http.Request) {
	fetch := h.Cases.Open
	if r.URL.Query().Get("status") == "all" {
		fetch = h.Cases.All
	}
	cases, err := fetch(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": cases})
}

func (h *ReconciliationHandler) resolve(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	c, err := h.Cases.Resolve(r.Context(), chi.URLParam(r, "id"), sess.User.Username)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": c})
}
