package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/backend/backendtest"
	"github.com/ariefcatur/inventory-dashboard/internal/config"
	"github.com/ariefcatur/inventory-dashboard/internal/httpx"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/reconcile"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
)

const cookieName = "dashboard_session"

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, _, _ []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) Open(ctx context.Context) ([]reconcile.Case, error) {
	args := m.Called(ctx)
	return args.Get(0).([]reconcile.Case), args.Error(1)
}

func (m *mockReconciler) All(ctx context.Context) ([]reconcile.Case, error) {
	args := m.Called(ctx)
	return args.Get(0).([]reconcile.Case), args.Error(1)
}

func (m *mockReconciler) Resolve(ctx context.Context, id, by string) (reconcile.Case, error) {
	args := m.Called(ctx, id, by)
	return args.Get(0).(reconcile.Case), args.Error(1)
}

type harness struct {
	t       *testing.T
	backend *backendtest.Server
	mr      *miniredis.Miniredis
	pub     *recordingPublisher
	recon   *mockReconciler
	url     string
	client  *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := backendtest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.Nop()
	client := backend.NewClient(config.BackendConfig{BaseURL: be.URL, Timeout: 2 * time.Second}, log)
	pub := &recordingPublisher{}
	recon := &mockReconciler{}

	router := httpx.NewRouter(log)
	httpx.API{
		Auth: &httpx.AuthHandler{
			Backend:  client,
			Sessions: session.NewStore(rdb, time.Hour),
			Signer:   session.NewSigner("0123456789abcdef0123", time.Hour),
			Cookie:   httpx.CookieConfig{Name: cookieName},
			Log:      log,
		},
		Resources: &httpx.ResourceHandler{Backend: client, Log: log},
		Orders: &httpx.OrdersHandler{
			Backend:  client,
			Forms:    orders.NewSnapshotStore(rdb, time.Minute),
			Redis:    rdb,
			Producer: pub,
			Service:  "inventory-dashboard",
			Log:      log,
		},
		Reconciliation: &httpx.ReconciliationHandler{Cases: recon, Log: log},
	}.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		t:       t,
		backend: be,
		mr:      mr,
		pub:     pub,
		recon:   recon,
		url:     srv.URL,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (h *harness) do(method, path string, body any) (int, map[string]any) {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.url+path, rdr)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()

	out := map[string]any{}
	if res.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(res.Body).Decode(&out)
	}
	return res.StatusCode, out
}

func (h *harness) login() {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/login", map[string]string{
		"username": backendtest.Username, "password": backendtest.Password,
	})
	require.Equal(h.t, http.StatusOK, code, body)
}

func (h *harness) sessionID() string {
	h.t.Helper()
	for _, k := range h.mr.Keys() {
		if strings.HasPrefix(k, "session:") {
			return strings.TrimPrefix(k, "session:")
		}
	}
	h.t.Fatal("no session in redis")
	return ""
}

func (h *harness) openForm() string {
	h.t.Helper()
	code, body := h.do(http.MethodGet, "/api/orders/form", nil)
	require.Equal(h.t, http.StatusOK, code, body)
	id, _ := body["form_id"].(string)
	require.NotEmpty(h.t, id)
	return id
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res, err := h.client.Get(h.url + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestLogin_BackendMessageIsPassedThrough(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "salah"})

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Username atau password salah", body["message"])
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(http.MethodPost, "/api/login", map[string]string{"username": "admin"})

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, 0, h.backend.Calls(backendtest.RouteLogin))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req, _ := http.NewRequest(http.MethodGet, h.url+"/api/barang", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "not-a-jwt"})
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, 0, h.backend.Calls(backendtest.RouteListBarang))
}

func TestLoginMeLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, body := h.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, code)
	user, _ := body["user"].(map[string]any)
	assert.Equal(t, backendtest.Username, user["username"])

	sid := h.sessionID()
	u, _ := http.NewRequest(http.MethodGet, h.url, nil)
	stale := h.client.Jar.Cookies(u.URL)
	require.NotEmpty(t, stale)

	code, _ = h.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, h.backend.Calls(backendtest.RouteLogout))
	assert.False(t, h.mr.Exists("session:"+sid))

	// a replayed cookie no longer resolves to a session
	req, _ := http.NewRequest(http.MethodGet, h.url+"/api/me", nil)
	for _, c := range stale {
		req.AddCookie(c)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLogout_BackendFailureStillClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login()
	sid := h.sessionID()
	h.backend.Fail(backendtest.RouteLogout, http.StatusInternalServerError, "boom")

	code, _ := h.do(http.MethodPost, "/api/logout", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, h.mr.Exists("session:"+sid))
}

func TestOrderFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)
	c := h.backend.AddCustomer("Budi")
	b := h.backend.AddBarang("Gula", "15000", 5)
	h.login()
	formA := h.openForm()
	formB := h.openForm()

	sel := func(formID string, q int) map[string]any {
		return map[string]any{"form_id": formID, "customer_id": c.ID, "id_barang": b.ID, "jumlah_barang": q}
	}

	code, body := h.do(http.MethodPost, "/api/orders/quote", sel(formA, 3))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "45000", body["total"])
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, formA, body["form_id"])

	code, body = h.do(http.MethodPost, "/api/orders", sel(formA, 3))
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, 2, h.backend.Stock(b.ID))
	assert.Equal(t, []string{orders.TopicOrderSubmitted}, h.pub.published())
	assert.False(t, h.mr.Exists(fmt.Sprintf(redisx.KeyOrderForm, h.sessionID(), formA)))

	// form B still says 5; the backend is the arbiter
	code, body = h.do(http.MethodPost, "/api/orders", sel(formB, 4))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Stok tidak mencukupi", body["message"])
	assert.Equal(t, string(orders.StepDecrementStock), body["step"])
	assert.Nil(t, body["reconciliation_required"])
	assert.Equal(t, 1, h.backend.Calls(backendtest.RouteCreateOrder))

	// form A reloads after its submit and sees the real stock of 2
	code, body = h.do(http.MethodPost, "/api/orders", sel(formA, 4))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, orders.MsgQuantityExceedsStock, body["message"])
	assert.Equal(t, 2, h.backend.Calls(backendtest.RouteDecrementStock))

	code, body = h.do(http.MethodPost, "/api/orders/quote", sel(formA, 0))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, orders.MsgQuantityNotPositive, body["message"])

	code, body = h.do(http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
}

func TestOrderSubmit_CreateFailureFlagsReconciliation(t *testing.T) {
	h := newHarness(t)
	c := h.backend.AddCustomer("Budi")
	b := h.backend.AddBarang("Gula", "15000", 5)
	h.login()
	formID := h.openForm()
	h.backend.Fail(backendtest.RouteCreateOrder, http.StatusInternalServerError, "Server Error")

	code, body := h.do(http.MethodPost, "/api/orders", map[string]any{
		"form_id": formID, "customer_id": c.ID, "id_barang": b.ID, "jumlah_barang": 2, "order_date": "2026-10-19",
	})

	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Server Error", body["message"])
	assert.Equal(t, string(orders.StepCreateOrder), body["step"])
	assert.Equal(t, true, body["reconciliation_required"])
	assert.Equal(t, 3, h.backend.Stock(b.ID))
	assert.Equal(t, []string{orders.TopicReconciliation}, h.pub.published())
}

func TestOrderSubmit_ExpiredFormLoadsFreshSnapshot(t *testing.T) {
	h := newHarness(t)
	c := h.backend.AddCustomer("Budi")
	b := h.backend.AddBarang("Gula", "15000", 5)
	h.login()

	code, body := h.do(http.MethodPost, "/api/orders", map[string]any{
		"form_id": "gone", "customer_id": c.ID, "id_barang": b.ID, "jumlah_barang": 2,
	})

	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "gone", body["form_id"])
	assert.Equal(t, 3, h.backend.Stock(b.ID))
	assert.Equal(t, 1, h.backend.Calls(backendtest.RouteListBarang))
}

func TestOrderQuote_MissingFormIDOpensOne(t *testing.T) {
	h := newHarness(t)
	c := h.backend.AddCustomer("Budi")
	b := h.backend.AddBarang("Gula", "15000", 1)
	h.login()

	code, body := h.do(http.MethodPost, "/api/orders/quote", map[string]any{
		"customer_id": c.ID, "id_barang": b.ID, "jumlah_barang": 2,
	})

	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, orders.MsgQuantityExceedsStock, body["message"])
	formID, _ := body["form_id"].(string)
	require.NotEmpty(t, formID)
	assert.True(t, h.mr.Exists(fmt.Sprintf(redisx.KeyOrderForm, h.sessionID(), formID)))
}

func TestOrderSubmit_BadOrderDate(t *testing.T) {
	h := newHarness(t)
	h.login()
	formID := h.openForm()

	code, _ := h.do(http.MethodPost, "/api/orders", map[string]any{"form_id": formID, "order_date": "19/10/2026"})

	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestOrderSubmit_SecondSubmitWhileLocked(t *testing.T) {
	h := newHarness(t)
	c := h.backend.AddCustomer("Budi")
	b := h.backend.AddBarang("Gula", "15000", 5)
	h.login()
	formID := h.openForm()
	require.NoError(t, h.mr.Set(fmt.Sprintf(redisx.KeySubmitLock, h.sessionID(), formID), "1"))

	code, body := h.do(http.MethodPost, "/api/orders", map[string]any{
		"form_id": formID, "customer_id": c.ID, "id_barang": b.ID, "jumlah_barang": 1,
	})

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "in_flight", body["code"])
	assert.Equal(t, 0, h.backend.Calls(backendtest.RouteDecrementStock))
}

func TestResources_CustomerCRUD(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, body := h.do(http.MethodPost, "/api/customers", map[string]string{"customer_name": "Budi"})
	require.Equal(t, http.StatusCreated, code)
	created, _ := body["data"].(map[string]any)
	id := fmt.Sprint(created["id"])

	code, body = h.do(http.MethodPut, "/api/customers/"+id, map[string]string{"customer_name": "Budi Santoso"})
	require.Equal(t, http.StatusOK, code)
	updated, _ := body["data"].(map[string]any)
	assert.Equal(t, "Budi Santoso", updated["customer_name"])

	code, body = h.do(http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)

	code, _ = h.do(http.MethodDelete, "/api/customers/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = h.do(http.MethodDelete, "/api/customers/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Data tidak ditemukan", body["message"])
}

func TestResources_BarangAcceptsStringPrice(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, body := h.do(http.MethodPost, "/api/barang", map[string]any{"nama_barang": "Beras", "harga": "12500.50", "jumlah": 4})

	require.Equal(t, http.StatusCreated, code, body)
	items, err := backend.NewClient(config.BackendConfig{BaseURL: h.backend.URL}, nil).
		WithToken(backendtest.Token).ListBarang(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12500.5", items[0].Price.String())
	assert.Equal(t, 4, items[0].Stock)
}

func TestReconciliationEndpoints(t *testing.T) {
	h := newHarness(t)
	h.login()
	by := "admin"
	h.recon.On("Open", mock.Anything).Return([]reconcile.Case{{ID: "c-1", Status: reconcile.StatusOpen}}, nil)
	h.recon.On("All", mock.Anything).Return([]reconcile.Case{
		{ID: "c-0", Status: reconcile.StatusResolved}, {ID: "c-1", Status: reconcile.StatusOpen},
	}, nil)
	h.recon.On("Resolve", mock.Anything, "c-1", backendtest.Username).
		Return(reconcile.Case{ID: "c-1", Status: reconcile.StatusResolved, ResolvedBy: &by}, nil)
	h.recon.On("Resolve", mock.Anything, "c-2", backendtest.Username).
		Return(reconcile.Case{}, reconcile.ErrNotFound)

	code, body := h.do(http.MethodGet, "/api/reconciliation", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)

	code, body = h.do(http.MethodGet, "/api/reconciliation?status=all", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)

	code, body = h.do(http.MethodPost, "/api/reconciliation/c-1/resolve", nil)
	require.Equal(t, http.StatusOK, code)
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, "RESOLVED", data["status"])

	code, _ = h.do(http.MethodPost, "/api/reconciliation/c-2/resolve", nil)
	assert.Equal(t, http.StatusNotFound, code)
	h.recon.AssertExpectations(t)
}
