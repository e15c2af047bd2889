// Package remote talks to the tenant's back-office REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-pos-terminal/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxErrorBody = 512

// Options configures a Client. Timeout bounds every request so a hung
// server cannot stall a sync cycle.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
	}
}

// orderRequest is the POST /orders body. The API expects prices and totals
// as JSON numbers, whatever decimal.MarshalJSONWithoutQuotes is set to.
type orderRequest struct {
	TenantID    string      `json:"tenantId"`
	Items       []orderLine `json:"items"`
	TotalAmount json.Number `json:"totalAmount"`
}

type orderLine struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
}

func newOrderRequest(order model.PendingOrder) orderRequest {
	lines := make([]orderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, orderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     number(it.Price),
			Quantity:  it.Quantity,
		})
	}
	return orderRequest{
		TenantID:    order.TenantID,
		Items:       lines,
		TotalAmount: number(order.TotalAmount),
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// FetchProducts reads the tenant's authoritative catalog
func (c *Client) FetchProducts(ctx context.Context, tenantID string) ([]model.CatalogItem, error) {
	const op = "fetch products"

	endpoint := fmt.Sprintf("%s/products?tenantId=%s", c.baseURL, url.QueryEscape(tenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, model.Unreachable(op, fmt.Errorf("create request: %w", err))
	}
	c.setHeaders(req, tenantID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.Unreachable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.ServerError(op, resp.StatusCode, errorBody(resp.Body))
	}

	var items []model.CatalogItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, model.Unreachable(op, err)
		}
		return nil, model.Malformed(op, fmt.Errorf("decode products: %w", err))
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	return items, nil
}

// SubmitOrder posts one order. Any 2xx means the remote accepted it.
// The idempotency key is resent unchanged on every retry of the same order.
func (c *Client) SubmitOrder(ctx context.Context, order model.PendingOrder) error {
	const op = "submit order"

	body, err := json.Marshal(newOrderRequest(order))
	if err != nil {
		return model.Malformed(op, fmt.Errorf("encode order %d: %w", order.LocalID, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return model.Unreachable(op, fmt.Errorf("create request: %w", err))
	}
	c.setHeaders(req, order.TenantID)
	req.Header.Set("Content-Type", "application/json")
	if order.IdempotencyKey != uuid.Nil {
		req.Header.Set("Idempotency-Key", order.IdempotencyKey.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Unreachable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ServerError(op, resp.StatusCode, errorBody(resp.Body))
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request, tenantID string) {
	req.Header.Set("X-Tenant-ID", tenantID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func errorBody(r io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
