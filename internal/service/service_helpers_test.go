package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/remote"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pos.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, repository.Migrate(db))
	return db
}

// fakeBackend is a scripted remote API
type fakeBackend struct {
	mu       sync.Mutex
	products map[string][]model.CatalogItem
	// status per product id of the first line item; 0 means 201
	orderStatus map[string]int
	catalogDown bool
	received    []receivedOrder
}

type receivedOrder struct {
	TenantID       string
	IdempotencyKey string
	Items          []model.OrderItem
	TotalAmount    decimal.Decimal
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products:    make(map[string][]model.CatalogItem),
		orderStatus: make(map[string]int),
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/products":
		if b.catalogDown {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		items := b.products[r.URL.Query().Get("tenantId")]
		if items == nil {
			items = []model.CatalogItem{}
		}
		_ = json.NewEncoder(w).Encode(items)
	case r.Method == http.MethodPost && r.URL.Path == "/orders":
		var body receivedOrder
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body.IdempotencyKey = r.Header.Get("Idempotency-Key")
		status := http.StatusCreated
		if len(body.Items) > 0 && b.orderStatus[body.Items[0].ProductID] != 0 {
			status = b.orderStatus[body.Items[0].ProductID]
		}
		if status < 300 {
			b.received = append(b.received, body)
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) setProducts(tenantID string, items ...model.CatalogItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[tenantID] = items
}

func (b *fakeBackend) failOrdersFor(productID string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderStatus[productID] = status
}

func (b *fakeBackend) setCatalogDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogDown = down
}

func (b *fakeBackend) orders() []receivedOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]receivedOrder(nil), b.received...)
}

func startBackend(t *testing.T, b *fakeBackend) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return remote.NewClient(remote.Options{BaseURL: srv.URL})
}

// unreachableClient points at a closed server
func unreachableClient(t *testing.T) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return remote.NewClient(remote.Options{BaseURL: url})
}

func product(id, name, price string) model.CatalogItem {
	return model.CatalogItem{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func line(productID string, price string, qty int) model.OrderItem {
	return model.OrderItem{ProductID: productID, Name: productID, Price: decimal.RequireFromString(price), Quantity: qty}
}

func recordOrders(t *testing.T, svc OutboxService, tenantID string, productIDs ...string) []int64 {
	t.Helper()
	out := make([]int64, 0, len(productIDs))
	for _, pid := range productIDs {
		id, err := svc.RecordOrder(context.Background(), model.NewPendingOrder(tenantID, []model.OrderItem{line(pid, "5", 1)}))
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}
