package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/remote"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/internal/service"
	"go-pos-terminal/pkg/database"
	"go-pos-terminal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("handler-secret")

type fakeSync struct {
	mu       sync.Mutex
	triggers []model.Trigger
	last     *model.CycleReport
}

func (f *fakeSync) Trigger(_ string, trigger model.Trigger) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return len(f.triggers) == 1
}

func (f *fakeSync) State(string) model.SyncState { return model.StateIdle }

func (f *fakeSync) LastReport(string) (model.CycleReport, bool) {
	if f.last == nil {
		return model.CycleReport{}, false
	}
	return *f.last, true
}

type testAPI struct {
	app     *fiber.App
	catalog repository.CatalogRepository
	sync    *fakeSync
	token   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pos.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, repository.Migrate(db))

	// the remote is down for the whole test: the API must not need it
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := remote.NewClient(remote.Options{BaseURL: srv.URL, Timeout: time.Second})

	catalogRepo := repository.NewCatalogRepo(db, nil)
	outbox := service.NewOutboxService(client, repository.NewOrderRepo(db, nil), zap.NewNop())
	fs := &fakeSync{}

	app := fiber.New()
	RegisterRoutes(app, secret, Handlers{
		Catalog: NewCatalogHandler(service.NewCatalogSyncService(client, catalogRepo, zap.NewNop())),
		Orders:  NewOrderHandler(outbox),
		Sync:    NewSyncHandler(fs, outbox),
	})

	token, err := jwt.GenerateToken(secret, "t1", "till-1", "sam", time.Hour)
	require.NoError(t, err)
	return &testAPI{app: app, catalog: catalogRepo, sync: fs, token: token}
}

func (a *testAPI) do(t *testing.T, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)
	yes := true
	no := false
	require.NoError(t, api.catalog.UpsertCatalog(context.Background(), "t1", []model.CatalogItem{
		{ID: "p1", Name: "Burger", Price: decimal.NewFromInt(10), Category: "Mains", IsAvailable: &yes},
		{ID: "p2", Name: "Veggie Burger", Price: decimal.NewFromInt(11), Category: "Mains", IsAvailable: &no},
		{ID: "p3", Name: "Fries", Price: decimal.NewFromInt(4)},
	}))
	require.NoError(t, api.catalog.UpsertCatalog(context.Background(), "t2", []model.CatalogItem{
		{ID: "x1", Name: "Pizza", Price: decimal.NewFromInt(15), Category: "Pizza"},
	}))

	resp, body := api.do(t, "GET", "/api/v1/catalog", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var items []model.CatalogItem
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Len(t, items, 3)

	_, body = api.do(t, "GET", "/api/v1/catalog?category=Mains&q=burger&available=true", "")
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)

	_, body = api.do(t, "GET", "/api/v1/catalog/categories", "")
	var categories []string
	require.NoError(t, json.Unmarshal(body, &categories))
	assert.Equal(t, []string{"Mains", model.UncategorizedLabel}, categories)
}

func TestCreateOrderWhileOffline(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/api/v1/orders",
		`{"items":[{"productId":"p1","name":"Burger","price":10,"quantity":2}]}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var created struct {
		LocalID     int64           `json:"local_id"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Positive(t, created.LocalID)
	assert.True(t, created.TotalAmount.Equal(decimal.NewFromInt(20)))

	resp, body = api.do(t, "GET", "/api/v1/orders/pending", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var pending []model.PendingOrder
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.LocalID, pending[0].LocalID)
	assert.Equal(t, "t1", pending[0].TenantID)
}

func TestCreateOrderValidation(t *testing.T) {
	api := newTestAPI(t)

	for _, body := range []string{
		`{"items":[]}`,
		`{"items":[{"productId":"p1","name":"Burger","price":10,"quantity":0}]}`,
		`{"items":[{"productId":"p1","name":"Burger","price":10,"quantity":1}],"totalAmount":-5}`,
		`not json`,
	} {
		resp, _ := api.do(t, "POST", "/api/v1/orders", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestOrderHistoryAndPurge(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 3; i++ {
		resp, _ := api.do(t, "POST", "/api/v1/orders",
			`{"items":[{"productId":"p1","name":"Burger","price":10,"quantity":1}]}`)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	_, body := api.do(t, "GET", "/api/v1/orders?limit=2", "")
	var orders []model.PendingOrder
	require.NoError(t, json.Unmarshal(body, &orders))
	require.Len(t, orders, 2)
	assert.Greater(t, orders[0].LocalID, orders[1].LocalID)

	resp, _ := api.do(t, "DELETE", "/api/v1/orders/synced?before=yesterday", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// nothing is synced, so nothing goes
	resp, body = api.do(t, "DELETE", "/api/v1/orders/synced?before="+time.Now().Add(time.Hour).UTC().Format(time.RFC3339), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"deleted":0`)
}

func TestSyncEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, "POST", "/api/v1/sync", "")
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"queued":true}`, string(body))

	resp, _ = api.do(t, "POST", "/api/v1/sync/signal", `{"event":"online"}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	resp, _ = api.do(t, "POST", "/api/v1/sync/signal", `{"event":"foreground"}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	resp, _ = api.do(t, "POST", "/api/v1/sync/signal", `{"event":"reboot"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, []model.Trigger{model.TriggerManual, model.TriggerConnectivity, model.TriggerForeground}, api.sync.triggers)

	api.sync.last = &model.CycleReport{TenantID: "t1", FlushKind: model.KindStoreFailure, FlushError: "disk full"}
	resp, body = api.do(t, "GET", "/api/v1/sync/status", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "idle", status["state"])
	assert.Equal(t, true, status["store_failure"])
	assert.EqualValues(t, 0, status["pending"])
}

func TestRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
	resp, err := api.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/healthz", nil)
	resp, err = api.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
