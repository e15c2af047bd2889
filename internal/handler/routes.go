package handler

import (
	"context"

	"go-pos-terminal/internal/middleware"
	"go-pos-terminal/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Catalog *CatalogHandler
	Orders  *OrderHandler
	Sync    *SyncHandler
	// Hub is optional; without it /ws is not mounted
	Hub *ws.Hub
}

// RegisterRoutes mounts the local terminal API. Everything except /healthz
// needs a terminal token.
func RegisterRoutes(app *fiber.App, secret []byte, h Handlers) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := middleware.RequireTerminalAuth(secret)
	api := app.Group("/api/v1", auth)

	api.Get("/catalog", h.Catalog.GetCatalog)
	api.Get("/catalog/categories", h.Catalog.GetCategories)

	api.Post("/orders", h.Orders.CreateOrder)
	api.Get("/orders", h.Orders.GetOrders)
	api.Get("/orders/pending", h.Orders.GetPending)
	api.Delete("/orders/synced", h.Orders.PurgeSynced)

	api.Post("/sync", h.Sync.TriggerSync)
	api.Post("/sync/signal", h.Sync.Signal)
	api.Get("/sync/status", h.Sync.Status)

	if h.Hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", auth, websocket.New(func(c *websocket.Conn) {
		tenantID, _ := c.Locals("tenant_id").(string)
		_ = h.Hub.Serve(context.Background(), c, tenantID)
	}))
}
