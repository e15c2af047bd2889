package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-terminal/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "t 1", r.URL.Query().Get("tenantId"))
		assert.Equal(t, "t 1", r.Header.Get("X-Tenant-ID"))
		assert.Equal(t, "Bearer api-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":"p1","name":"Burger","price":12,"category":"Mains","isAvailable":true},
			{"id":"p2","name":"Fries","price":"4.50","imageUrl":"https://cdn.example.com/fries.png"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", Token: "api-token"})
	items, err := c.FetchProducts(context.Background(), "t 1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "Mains", items[0].Category)
	require.NotNil(t, items[0].IsAvailable)
	assert.True(t, items[1].Price.Equal(decimal.RequireFromString("4.5")))
	assert.Nil(t, items[1].IsAvailable)
	assert.Equal(t, "https://cdn.example.com/fries.png", items[1].ImageURL)
}

func TestFetchProductsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("tenantId") {
		case "down":
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		case "garbled":
			_, _ = io.WriteString(w, `{"not":"an array"`)
		case "empty":
			_, _ = io.WriteString(w, `null`)
		}
	}))
	defer srv.Close()
	c := NewClient(Options{BaseURL: srv.URL})

	_, err := c.FetchProducts(context.Background(), "down")
	assert.ErrorIs(t, err, model.ErrServer)
	assert.Equal(t, http.StatusServiceUnavailable, model.StatusOf(err))
	assert.Contains(t, err.Error(), "maintenance")

	_, err = c.FetchProducts(context.Background(), "garbled")
	assert.ErrorIs(t, err, model.ErrMalformed)

	items, err := c.FetchProducts(context.Background(), "empty")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = NewClient(Options{BaseURL: closed.URL}).FetchProducts(context.Background(), "t1")
	assert.ErrorIs(t, err, model.ErrUnreachable)
}

func TestFetchProductsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.FetchProducts(context.Background(), "t1")
	assert.ErrorIs(t, err, model.ErrUnreachable)
}

func TestSubmitOrder(t *testing.T) {
	order := model.NewPendingOrder("t1", []model.OrderItem{
		{ProductID: "p1", Name: "Burger", Price: decimal.NewFromInt(10), Quantity: 2},
	})
	order.LocalID = 3
	require.NoError(t, order.BeforeCreate(nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, order.IdempotencyKey.String(), r.Header.Get("Idempotency-Key"))

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `"t1"`, string(body["tenantId"]))
		assert.JSONEq(t, `20`, string(body["totalAmount"]))
		assert.JSONEq(t, `[{"productId":"p1","name":"Burger","price":10,"quantity":2}]`, string(body["items"]))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(Options{BaseURL: srv.URL}).SubmitOrder(context.Background(), *order))
}

func TestSubmitOrderSendsNumbersWithQuotedDecimals(t *testing.T) {
	prev := decimal.MarshalJSONWithoutQuotes
	decimal.MarshalJSONWithoutQuotes = false
	defer func() { decimal.MarshalJSONWithoutQuotes = prev }()

	order := model.NewPendingOrder("t1", []model.OrderItem{
		{ProductID: "p1", Name: "Latte", Price: decimal.RequireFromString("3.45"), Quantity: 3},
	})

	var body map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(Options{BaseURL: srv.URL}).SubmitOrder(context.Background(), *order))
	assert.Equal(t, `10.35`, string(body["totalAmount"]))
	assert.JSONEq(t, `[{"productId":"p1","name":"Latte","price":3.45,"quantity":3}]`, string(body["items"]))
}

func TestSubmitOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown product", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewClient(Options{BaseURL: srv.URL}).SubmitOrder(context.Background(), model.PendingOrder{TenantID: "t1"})
	assert.ErrorIs(t, err, model.ErrServer)
	assert.Equal(t, http.StatusUnprocessableEntity, model.StatusOf(err))
}
