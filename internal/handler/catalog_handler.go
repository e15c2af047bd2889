package handler

import (
	"go-pos-terminal/internal/live"
	"go-pos-terminal/internal/middleware"
	"go-pos-terminal/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	service service.CatalogSyncService
}

func NewCatalogHandler(s service.CatalogSyncService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

// GetCatalog serves the cached catalog. It never calls the remote API.
// Optional filters: ?category=, ?q= and ?available=true.
func (h *CatalogHandler) GetCatalog(c *fiber.Ctx) error {
	items, err := h.service.Catalog(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return storeError(c, err)
	}

	items = live.FilterByCategory(items, c.Query("category"))
	items = live.Search(items, c.Query("q"))
	if c.QueryBool("available") {
		items = live.Available(items)
	}
	return c.JSON(items)
}

func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	items, err := h.service.Catalog(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(live.Categories(items))
}
