package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is one line of a sale, a snapshot of the catalog item at sale time
type OrderItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PendingOrder is a sale recorded on the terminal and queued for delivery
// to the remote API. Synced only ever flips from false to true.
type PendingOrder struct {
	LocalID        int64           `gorm:"primaryKey;autoIncrement" json:"localId"`
	TenantID       string          `gorm:"type:varchar(64);not null;index:idx_offline_orders_tenant_synced,priority:1" json:"tenantId" validate:"required"`
	Items          []OrderItem     `gorm:"serializer:json;type:text;not null" json:"items" validate:"required,min=1,dive"`
	// text on sqlite, see repository.Migrate
	TotalAmount    decimal.Decimal `gorm:"type:numeric;not null" json:"totalAmount" validate:"gte=0"`
	CreatedAt      time.Time       `gorm:"not null" json:"createdAt"`
	Synced         bool            `gorm:"not null;default:false;index:idx_offline_orders_tenant_synced,priority:2" json:"synced"`
	SyncedAt       *time.Time      `json:"syncedAt,omitempty"`
	IdempotencyKey uuid.UUID       `gorm:"type:varchar(36);uniqueIndex" json:"idempotencyKey"`
}

func (PendingOrder) TableName() string {
	return "offline_orders"
}

// BeforeCreate stamps creation time and the idempotency key once, and forces
// new rows to start unsynced.
func (o *PendingOrder) BeforeCreate(tx *gorm.DB) error {
	if o.IdempotencyKey == uuid.Nil {
		o.IdempotencyKey = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.Synced = false
	o.SyncedAt = nil
	return nil
}

// NewPendingOrder builds an order whose total is the sum of its line subtotals
func NewPendingOrder(tenantID string, items []OrderItem) *PendingOrder {
	return &PendingOrder{
		TenantID:    tenantID,
		Items:       items,
		TotalAmount: SumItems(items),
	}
}

func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
