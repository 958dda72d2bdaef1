package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	env, err := c.do(ctx, "login", http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	if env.Token == "" {
		return LoginResult{}, &RemoteError{Op: "login", Status: http.StatusOK, Message: "token missing from login response", Err: ErrUnexpectedShape}
	}
	res := LoginResult{Token: env.Token, Message: env.Message}
	if len(env.User) > 0 && string(env.User) != "null" {
		if err := json.Unmarshal(env.User, &res.User); err != nil {
			return LoginResult{}, &RemoteError{Op: "login", Status: http.StatusOK, Message: "decode user: " + err.Error(), Err: ErrUnexpectedShape}
		}
	}
	return res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, "logout", http.MethodPost, "/logout", struct{}{})
	return err
}

// users

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return list[User](ctx, c, "list users", "/users")
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	return write[User](ctx, c, "create user", http.MethodPost, "/users", in)
}

func (c *Client) UpdateUser(ctx context.Context, id ID, in UserInput) (User, error) {
	return write[User](ctx, c, "update user", http.MethodPut, "/users/"+id.escaped(), in)
}

func (c *Client) DeleteUser(ctx context.Context, id ID) error {
	return c.remove(ctx, "delete user", "/users/"+id.escaped())
}

// categories

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return list[Category](ctx, c, "list categories", "/categories")
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	return write[Category](ctx, c, "create category", http.MethodPost, "/categories", in)
}

func (c *Client) UpdateCategory(ctx context.Context, id ID, in CategoryInput) (Category, error) {
	return write[Category](ctx, c, "update category", http.MethodPut, "/categories/"+id.escaped(), in)
}

func (c *Client) DeleteCategory(ctx context.Context, id ID) error {
	return c.remove(ctx, "delete category", "/categories/"+id.escaped())
}

// customers

func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	return list[Customer](ctx, c, "list customers", "/customer")
}

func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	return write[Customer](ctx, c, "create customer", http.MethodPost, "/customer", in)
}

func (c *Client) UpdateCustomer(ctx context.Context, id ID, in CustomerInput) (Customer, error) {
	return write[Customer](ctx, c, "update customer", http.MethodPut, "/customer/"+id.escaped(), in)
}

func (c *Client) DeleteCustomer(ctx context.Context, id ID) error {
	return c.remove(ctx, "delete customer", "/customer/"+id.escaped())
}

// barang

func (c *Client) ListBarang(ctx context.Context) ([]Barang, error) {
	return list[Barang](ctx, c, "list barang", "/barang")
}

func (c *Client) CreateBarang(ctx context.Context, in BarangInput) (Barang, error) {
	return write[Barang](ctx, c, "create barang", http.MethodPost, "/barang", in)
}

func (c *Client) UpdateBarang(ctx context.Context, id ID, in BarangInput) (Barang, error) {
	return write[Barang](ctx, c, "update barang", http.MethodPut, "/barang/"+id.escaped(), in)
}

func (c *Client) DeleteBarang(ctx context.Context, id ID) error {
	return c.remove(ctx, "delete barang", "/barang/"+id.escaped())
}

// DecrementStock calls PATCH /barang/{id}/kurangi-stok. The backend is the
// arbiter of whether enough stock remains; its message is returned verbatim.
func (c *Client) DecrementStock(ctx context.Context, id ID, qty int) error {
	_, err := c.do(ctx, "decrement stock", http.MethodPatch, "/barang/"+id.escaped()+"/kurangi-stok", map[string]int{"jumlah": qty})
	return err
}

// orders

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	return list[Order](ctx, c, "list orders", "/order")
}

func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (Order, error) {
	return write[Order](ctx, c, "create order", http.MethodPost, "/order", in)
}
