package handler

import (
	"errors"
	"time"

	"go-pos-terminal/internal/middleware"
	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	service service.OutboxService
}

func NewOrderHandler(s service.OutboxService) *OrderHandler {
	return &OrderHandler{service: s}
}

type createOrderRequest struct {
	Items []model.OrderItem `json:"items"`
	// computed from the items when omitted
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

// CreateOrder records a sale locally and answers before any network call
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order := model.NewPendingOrder(middleware.TenantID(c), req.Items)
	if req.TotalAmount != nil {
		order.TotalAmount = *req.TotalAmount
	}

	id, err := h.service.RecordOrder(c.UserContext(), order)
	if err != nil {
		if errors.Is(err, model.ErrInvalidOrder) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"local_id":        id,
		"idempotency_key": order.IdempotencyKey,
		"total_amount":    order.TotalAmount,
	})
}

func (h *OrderHandler) GetPending(c *fiber.Ctx) error {
	orders, err := h.service.PendingOrders(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(orders)
}

// GetOrders lists the local order history, newest first
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	orders, err := h.service.History(c.UserContext(), middleware.TenantID(c), limit)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(orders)
}

// PurgeSynced drops delivered orders synced before ?before= (RFC3339)
func (h *OrderHandler) PurgeSynced(c *fiber.Ctx) error {
	before, err := time.Parse(time.RFC3339, c.Query("before"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "before must be an RFC3339 timestamp"})
	}

	n, err := h.service.Purge(c.UserContext(), middleware.TenantID(c), before)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Synced orders purged", "deleted": n})
}

// storeError maps a local store failure to 503 so the till can tell the
// operator; anything else is a plain 500.
func storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, model.ErrStoreFailure) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Local storage unavailable",
			"kind":  model.KindStoreFailure,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}
