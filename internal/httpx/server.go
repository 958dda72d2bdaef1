package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/reconcile"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
)

// NewRouter returns the base router with request ids, access logs and
// /healthz. API handlers are mounted by the caller.
func NewRouter(log logger.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))

			next.ServeHTTP(ww, r.WithContext(ctx))

			log.WithContext(ctx).Info("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// API mounts every dashboard endpoint under /api.
type API struct {
	Auth           *AuthHandler
	Resources      *ResourceHandler
	Orders         *OrdersHandler
	Reconciliation *ReconciliationHandler
}

func (a API) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", a.Auth.login)
		r.Group(func(r chi.Router) {
			r.Use(a.Auth.RequireSession)
			a.Auth.Register(r)
			a.Resources.Register(r)
			a.Orders.Register(r)
			if a.Reconciliation != nil {
				a.Reconciliation.Register(r)
			}
		})
	})
}

type errorResponse struct {
	Message                string      `json:"message"`
	Step                   orders.Step `json:"step,omitempty"`
	ReconciliationRequired bool        `json:"reconciliation_required,omitempty"`
	BackendStatus          int         `json:"backend_status,omitempty"`
	Code                   string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &orders.ValidationError{Message: "invalid json"}
	}
	return nil
}

// errorStatus maps a handler error onto the response the browser sees.
func errorStatus(err error) (int, errorResponse) {
	var (
		ve *orders.ValidationError
		se *orders.StepError
		re *backend.RemoteError
	)
	resp := errorResponse{Message: err.Error()}
	if errors.As(err, &se) {
		resp.Step = se.Step
		resp.ReconciliationRequired = se.StockDecremented
	}

	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errorResponse{Message: ve.Message, Code: "validation"}
	case errors.Is(err, orders.ErrSubmitInFlight):
		resp.Code = "in_flight"
		return http.StatusConflict, resp
	case errors.Is(err, orders.ErrFormExpired):
		resp.Code = "form_expired"
		return http.StatusGone, resp
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Message: "unauthenticated", Code: "session"}
	case errors.Is(err, reconcile.ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, reconcile.ErrAlreadyResolved):
		return http.StatusConflict, resp
	case errors.As(err, &re):
		resp.Message = re.Message
		resp.BackendStatus = re.Status
		resp.Code = "remote"
		if re.IsClientError() {
			return re.Status, resp
		}
		return http.StatusBadGateway, resp
	case se != nil:
		resp.Code = "remote"
		return http.StatusBadGateway, resp
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	code, resp := errorStatus(err)
	l := log.WithContext(r.Context())
	switch {
	case resp.ReconciliationRequired:
		// already logged at error level by the order flow
	case code >= 500:
		l.Error("request failed", logger.String("path", r.URL.Path), logger.Error(err))
	case code != http.StatusUnprocessableEntity:
		l.Warn("request rejected", logger.String("path", r.URL.Path), logger.Int("status", code), logger.Error(err))
	}
	writeJSON(w, code, resp)
}
