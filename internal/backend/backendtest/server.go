// Package backendtest runs an in-memory stand-in for the remote REST
// backend. It keeps per-route call counts so tests can assert exactly
// which requests the dashboard issued.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
)

const (
	RouteLogin          = "POST /login"
	RouteLogout         = "POST /logout"
	RouteListCustomers  = "GET /customer"
	RouteListBarang     = "GET /barang"
	RouteDecrementStock = "PATCH /barang/{id}/kurangi-stok"
	RouteListOrders     = "GET /order"
	RouteCreateOrder    = "POST /order"

	Username = "admin"
	Password = "rahasia"
	Token    = "test-token"
)

type failure struct {
	status  int
	message string
}

type Server struct {
	*httptest.Server

	// AllowNegativeStock lets a decrement drive stock below zero instead
	// of answering 422.
	AllowNegativeStock bool

	mu         sync.Mutex
	calls      map[string]int
	fail       map[string]failure
	nextID     int
	users      []backend.User
	categories []backend.Category
	customers  []backend.Customer
	barang     []backend.Barang
	orders     []backend.Order
}

func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		calls:  map[string]int{},
		fail:   map[string]failure{},
		nextID: 1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Post("/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Logout berhasil"})
		})

		r.Get("/users", listHandler(s, &s.users))
		r.Post("/users", s.createUser)
		r.Put("/users/{id}", s.updateUser)
		r.Delete("/users/{id}", deleteHandler(s, &s.users, func(u backend.User) backend.ID { return u.ID }))

		r.Get("/categories", listHandler(s, &s.categories))
		r.Post("/categories", s.createCategory)
		r.Put("/categories/{id}", s.updateCategory)
		r.Delete("/categories/{id}", deleteHandler(s, &s.categories, func(c backend.Category) backend.ID { return c.ID }))

		r.Get("/customer", listHandler(s, &s.customers))
		r.Post("/customer", s.createCustomer)
		r.Put("/customer/{id}", s.updateCustomer)
		r.Delete("/customer/{id}", deleteHandler(s, &s.customers, func(c backend.Customer) backend.ID { return c.ID }))

		r.Get("/barang", listHandler(s, &s.barang))
		r.Post("/barang", s.createBarang)
		r.Put("/barang/{id}", s.updateBarang)
		r.Delete("/barang/{id}", deleteHandler(s, &s.barang, func(b backend.Barang) backend.ID { return b.ID }))
		r.Patch("/barang/{id}/kurangi-stok", s.decrementStock)

		r.Get("/order", listHandler(s, &s.orders))
		r.Post("/order", s.createOrder)
	})
	return r
}

// Calls returns how many requests hit route, e.g. RouteDecrementStock.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Fail makes every request to route answer status with {"message": msg}
// until Recover is called.
func (s *Server) Fail(route string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[route] = failure{status: status, message: msg}
}

func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, route)
}

func (s *Server) AddCustomer(name string) backend.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := backend.Customer{ID: s.newID(), Name: name}
	s.customers = append(s.customers, c)
	return c
}

func (s *Server) AddBarang(name, price string, stock int) backend.Barang {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := backend.Barang{ID: s.newID(), Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	s.barang = append(s.barang, b)
	return b
}

// Stock reports the backend's current jumlah for id, or -1 if unknown.
func (s *Server) Stock(id backend.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.barang {
		if b.ID == id {
			return b.Stock
		}
	}
	return -1
}

func (s *Server) Orders() []backend.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Order(nil), s.orders...)
}

func (s *Server) newID() backend.ID {
	id := backend.ID(strconv.Itoa(s.nextID))
	s.nextID++
	return id
}

// observe counts every request against its route pattern and answers
// injected failures before the real handler runs.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " "
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.Routes != nil {
			tctx := chi.NewRouteContext()
			if rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
				key += tctx.RoutePattern()
			}
		}

		s.mu.Lock()
		s.calls[key]++
		f, failing := s.fail[key]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	if req.Username != Username || req.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Username atau password salah"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login berhasil",
		"token":   Token,
		"user":    backend.User{ID: "1", Name: "Administrator", Email: "admin@toko.test", Username: Username},
	})
}

func (s *Server) decrementStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Jumlah int `json:"jumlah"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Jumlah <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Jumlah tidak valid"})
		return
	}
	id := backend.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.barang {
		if s.barang[i].ID != id {
			continue
		}
		if s.barang[i].Stock < req.Jumlah && !s.AllowNegativeStock {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Stok tidak mencukupi"})
			return
		}
		s.barang[i].Stock -= req.Jumlah
		writeJSON(w, http.StatusOK, map[string]any{"message": "Stok berhasil dikurangi", "data": s.barang[i]})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Barang tidak ditemukan"})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var o backend.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "invalid order"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.newID()
	for i := range s.customers {
		if s.customers[i].ID == o.CustomerID {
			c := s.customers[i]
			o.Customer = &c
		}
	}
	for i := range s.barang {
		if s.barang[i].ID == o.BarangID {
			b := s.barang[i]
			o.Barang = &b
		}
	}
	if o.Customer == nil || o.Barang == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Customer atau barang tidak ditemukan"})
		return
	}
	s.orders = append(s.orders, o)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Order berhasil dibuat", "data": o})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in backend.UserInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := backend.User{ID: s.newID(), Name: in.Name, Email: in.Email, Username: in.Username}
	s.users = append(s.users, u)
	writeJSON(w, http.StatusCreated, map[string]any{"data": u})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in backend.UserInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == backend.ID(chi.URLParam(r, "id")) {
			s.users[i].Name, s.users[i].Email, s.users[i].Username = in.Name, in.Email, in.Username
			writeJSON(w, http.StatusOK, map[string]any{"data": s.users[i]})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User tidak ditemukan"})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in backend.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := backend.Category{ID: s.newID(), Name: in.Name, Description: in.Description, IsActive: in.IsActive}
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, map[string]any{"data": c})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in backend.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == backend.ID(chi.URLParam(r, "id")) {
			s.categories[i].Name, s.categories[i].Description, s.categories[i].IsActive = in.Name, in.Description, in.IsActive
			writeJSON(w, http.StatusOK, map[string]any{"data": s.categories[i]})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Kategori tidak ditemukan"})
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in backend.CustomerInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := backend.Customer{ID: s.newID(), Name: in.Name}
	s.customers = append(s.customers, c)
	writeJSON(w, http.StatusCreated, map[string]any{"data": c})
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var in backend.CustomerInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if s.customers[i].ID == backend.ID(chi.URLParam(r, "id")) {
			s.customers[i].Name = in.Name
			writeJSON(w, http.StatusOK, map[string]any{"data": s.customers[i]})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Customer tidak ditemukan"})
}

func (s *Server) createBarang(w http.ResponseWriter, r *http.Request) {
	var b backend.Barang
	if !decode(w, r, &b) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.newID()
	s.barang = append(s.barang, b)
	writeJSON(w, http.StatusCreated, map[string]any{"data": b})
}

func (s *Server) updateBarang(w http.ResponseWriter, r *http.Request) {
	var in backend.Barang
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.barang {
		if s.barang[i].ID == backend.ID(chi.URLParam(r, "id")) {
			in.ID = s.barang[i].ID
			s.barang[i] = in
			writeJSON(w, http.StatusOK, map[string]any{"data": in})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Barang tidak ditemukan"})
}

func listHandler[T any](s *Server, rows *[]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		out := append([]T{}, (*rows)...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	}
}

func deleteHandler[T any](s *Server, rows *[]T, idOf func(T) backend.ID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := backend.ID(chi.URLParam(r, "id"))
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, row := range *rows {
			if idOf(row) == id {
				*rows = append((*rows)[:i], (*rows)[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": "Data berhasil dihapus"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Data tidak ditemukan"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
