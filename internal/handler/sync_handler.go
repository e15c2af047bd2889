package handler

import (
	"go-pos-terminal/internal/middleware"
	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SyncController is the orchestrator surface the API needs
type SyncController interface {
	Trigger(tenantID string, trigger model.Trigger) bool
	State(tenantID string) model.SyncState
	LastReport(tenantID string) (model.CycleReport, bool)
}

type SyncHandler struct {
	sync   SyncController
	outbox service.OutboxService
}

func NewSyncHandler(sync SyncController, outbox service.OutboxService) *SyncHandler {
	return &SyncHandler{sync: sync, outbox: outbox}
}

// signalTriggers maps UI lifecycle events to sync triggers
var signalTriggers = map[string]model.Trigger{
	"foreground": model.TriggerForeground,
	"online":     model.TriggerConnectivity,
}

// TriggerSync asks for a manual cycle. 202 either way: a cycle already
// queued for the tenant covers this request.
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	queued := h.sync.Trigger(middleware.TenantID(c), model.TriggerManual)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued})
}

func (h *SyncHandler) Signal(c *fiber.Ctx) error {
	var req struct {
		Event string `json:"event"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	trigger, ok := signalTriggers[req.Event]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event must be foreground or online"})
	}

	queued := h.sync.Trigger(middleware.TenantID(c), trigger)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued, "trigger": trigger})
}

func (h *SyncHandler) Status(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)

	pending, err := h.outbox.PendingOrders(c.UserContext(), tenantID)
	if err != nil {
		return storeError(c, err)
	}

	resp := fiber.Map{
		"state":   h.sync.State(tenantID),
		"pending": len(pending),
	}
	if last, ok := h.sync.LastReport(tenantID); ok {
		resp["last_report"] = last
		resp["store_failure"] = last.StoreFailure()
	}
	return c.JSON(resp)
}
