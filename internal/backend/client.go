package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ariefcatur/inventory-dashboard/internal/config"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
)

const maxBodyBytes = 4 << 20

// Envelope is the only body shape the backend is allowed to answer with.
type Envelope struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Token   string          `json:"token,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	log        logger.Logger
}

func NewClient(cfg config.BackendConfig, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		log:     log,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithToken returns a copy of c that sends token as the bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*Envelope, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.WithContext(ctx).WithFields(logger.String("op", op), logger.String("path", path))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("backend call failed", logger.Error(err))
		return nil, &RemoteError{Op: op, Message: "cannot reach backend", Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: "read response", Err: err}
	}
	log.Debug("backend call", logger.Int("status", resp.StatusCode), logger.Int64("took_ms", time.Since(start).Milliseconds()))

	var env Envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, "")}
			}
			return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: ErrUnexpectedShape.Error(), Err: ErrUnexpectedShape}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, env.Message)}
	}
	return &env, nil
}

func decodeData[T any](op string, env *Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, &RemoteError{Op: op, Status: http.StatusOK, Message: ErrUnexpectedShape.Error() + ": missing data", Err: ErrUnexpectedShape}
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, &RemoteError{Op: op, Status: http.StatusOK, Message: ErrUnexpectedShape.Error() + ": " + err.Error(), Err: ErrUnexpectedShape}
	}
	return out, nil
}

func list[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	env, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[[]T](op, env)
}

func write[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	env, err := c.do(ctx, op, method, path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeData[T](op, env)
}

func (c *Client) remove(ctx context.Context, op, path string) error {
	_, err := c.do(ctx, op, http.MethodDelete, path, nil)
	return err
}
