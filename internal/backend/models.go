package backend

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// ID is an opaque backend identifier. The backend emits numeric ids, but
// anything that round-trips through a form arrives as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	// only canonical integers go out bare; "007" or "+5" stay strings
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

func (id ID) escaped() string { return url.PathEscape(string(id)) }

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

type Category struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// CategoryInput carries the text fields only; image upload stays in the browser.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type Customer struct {
	ID   ID     `json:"id"`
	Name string `json:"customer_name"`
}

type CustomerInput struct {
	Name string `json:"customer_name"`
}

// Barang is an inventory item. Stock is the backend's jumlah column.
type Barang struct {
	ID    ID              `json:"id"`
	Name  string          `json:"nama_barang"`
	Price decimal.Decimal `json:"harga"`
	Stock int             `json:"jumlah"`
}

type BarangInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

type barangWire struct {
	Name  string      `json:"nama_barang"`
	Price json.Number `json:"harga"`
	Stock int         `json:"jumlah"`
}

func (in BarangInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(barangWire{in.Name, number(in.Price), in.Stock})
}

// UnmarshalJSON accepts harga as a JSON number or a numeric string.
func (in *BarangInput) UnmarshalJSON(b []byte) error {
	var w struct {
		Name  string          `json:"nama_barang"`
		Price decimal.Decimal `json:"harga"`
		Stock int             `json:"jumlah"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	in.Name, in.Price, in.Stock = w.Name, w.Price, w.Stock
	return nil
}

type Order struct {
	ID         ID              `json:"id"`
	CustomerID ID              `json:"customer_id"`
	BarangID   ID              `json:"id_barang"`
	Quantity   int             `json:"jumlah_barang"`
	Total      decimal.Decimal `json:"total"`
	OrderDate  string          `json:"order_date"`
	Customer   *Customer       `json:"customer,omitempty"`
	Barang     *Barang         `json:"barang,omitempty"`
}

// OrderInput is the POST /order body. OrderDate is YYYY-MM-DD.
type OrderInput struct {
	CustomerID ID
	BarangID   ID
	Quantity   int
	Total      decimal.Decimal
	OrderDate  string
}

func (in OrderInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CustomerID ID          `json:"customer_id"`
		BarangID   ID          `json:"id_barang"`
		Quantity   int         `json:"jumlah_barang"`
		Total      json.Number `json:"total"`
		OrderDate  string      `json:"order_date"`
	}{in.CustomerID, in.BarangID, in.Quantity, number(in.Total), in.OrderDate})
}

type LoginResult struct {
	Token   string
	User    User
	Message string
}
