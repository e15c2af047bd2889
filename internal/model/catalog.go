package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is shown for items the remote catalog leaves without a category
const UncategorizedLabel = "Uncategorized"

// CatalogItem is a product mirrored from the tenant's remote catalog.
// (TenantID, ID) is the primary key; IDs are only unique inside a tenant.
type CatalogItem struct {
	TenantID    string          `gorm:"primaryKey;type:varchar(64)" json:"tenantId"`
	ID          string          `gorm:"primaryKey;type:varchar(128)" json:"id" validate:"required"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	// numeric on postgres, text on sqlite where NUMERIC rounds through REAL
	Price       decimal.Decimal `gorm:"type:numeric;not null" json:"price" validate:"gte=0"`
	Category    string          `gorm:"type:varchar(100);index" json:"category,omitempty"`
	ImageURL    string          `gorm:"type:text" json:"imageUrl,omitempty"`
	IsAvailable *bool           `json:"isAvailable,omitempty"`

	// Local bookkeeping, never sent by the remote API
	SyncedAt time.Time `json:"-"`
}

func (CatalogItem) TableName() string {
	return "products"
}

// CategoryOrDefault returns the category, or UncategorizedLabel when absent
func (c CatalogItem) CategoryOrDefault() string {
	if c.Category == "" {
		return UncategorizedLabel
	}
	return c.Category
}

// Purchasable reports whether the item can be sold. Absent availability means yes.
func (c CatalogItem) Purchasable() bool {
	return c.IsAvailable == nil || *c.IsAvailable
}
