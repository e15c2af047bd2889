package repository

import (
	"fmt"
	"time"

	"go-pos-terminal/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SchemaMigration records one applied schema version
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"type:varchar(255);not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB) error
}

// Table shapes as of version 1
type productV1 struct {
	TenantID    string          `gorm:"primaryKey;type:varchar(64)"`
	ID          string          `gorm:"primaryKey;type:varchar(128)"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Category    string          `gorm:"type:varchar(100);index:idx_products_category"`
	ImageURL    string          `gorm:"type:text"`
	IsAvailable *bool
	SyncedAt    time.Time
}

func (productV1) TableName() string { return "products" }

type offlineOrderV1 struct {
	LocalID     int64           `gorm:"primaryKey;autoIncrement"`
	TenantID    string          `gorm:"type:varchar(64);not null;index:idx_offline_orders_tenant_synced,priority:1"`
	Items       string          `gorm:"type:text;not null"`
	TotalAmount decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	Synced      bool            `gorm:"not null;default:false;index:idx_offline_orders_tenant_synced,priority:2"`
	SyncedAt    *time.Time
}

func (offlineOrderV1) TableName() string { return "offline_orders" }

// Table shapes as of version 3 on sqlite. NUMERIC affinity turns decimals
// into REAL there, so money is kept as text.
type productV3 struct {
	TenantID    string          `gorm:"primaryKey;type:varchar(64)"`
	ID          string          `gorm:"primaryKey;type:varchar(128)"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Price       decimal.Decimal `gorm:"type:text;not null"`
	Category    string          `gorm:"type:varchar(100);index:idx_products_category"`
	ImageURL    string          `gorm:"type:text"`
	IsAvailable *bool
	SyncedAt    time.Time
}

func (productV3) TableName() string { return "products" }

type offlineOrderV3 struct {
	LocalID        int64           `gorm:"primaryKey;autoIncrement"`
	TenantID       string          `gorm:"type:varchar(64);not null;index:idx_offline_orders_tenant_synced,priority:1"`
	Items          string          `gorm:"type:text;not null"`
	TotalAmount    decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt      time.Time       `gorm:"not null"`
	Synced         bool            `gorm:"not null;default:false;index:idx_offline_orders_tenant_synced,priority:2"`
	SyncedAt       *time.Time
	IdempotencyKey string          `gorm:"type:varchar(36);uniqueIndex:idx_offline_orders_idempotency_key"`
}

func (offlineOrderV3) TableName() string { return "offline_orders" }

const (
	productColumns = "tenant_id, id, name, price, category, image_url, is_available, synced_at"
	orderColumns   = "local_id, tenant_id, items, total_amount, created_at, synced, synced_at, idempotency_key"
)

// rebuildTable recreates table with the given shape and copies its rows
// over. sqlite cannot change a column type in place. The AUTOINCREMENT
// counter is carried over so ids of deleted rows are never handed out again.
func rebuildTable(tx *gorm.DB, shape interface{}, table, columns string, indexes ...string) error {
	old := table + "_old"
	if err := tx.Migrator().RenameTable(table, old); err != nil {
		return fmt.Errorf("rename %s: %w", table, err)
	}
	// index names are global, the renamed table still holds them
	for _, idx := range indexes {
		if err := tx.Exec("DROP INDEX IF EXISTS " + idx).Error; err != nil {
			return fmt.Errorf("drop index %s: %w", idx, err)
		}
	}
	if err := tx.Migrator().CreateTable(shape); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := tx.Exec(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", table, columns, columns, old)).Error; err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}

	var seqTables int64
	if err := tx.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").
		Scan(&seqTables).Error; err != nil {
		return err
	}
	if seqTables > 0 {
		if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error; err != nil {
			return err
		}
		if err := tx.Exec("INSERT INTO sqlite_sequence (name, seq) SELECT ?, seq FROM sqlite_sequence WHERE name = ?", table, old).Error; err != nil {
			return err
		}
	}
	return tx.Migrator().DropTable(old)
}

var migrations = []migration{
	{
		version: 1,
		name:    "create products and offline_orders",
		up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&productV1{}, &offlineOrderV1{})
		},
	},
	{
		version: 2,
		name:    "add offline_orders.idempotency_key",
		up: func(tx *gorm.DB) error {
			m := tx.Migrator()
			if !m.HasColumn(&model.PendingOrder{}, "IdempotencyKey") {
				if err := m.AddColumn(&model.PendingOrder{}, "IdempotencyKey"); err != nil {
					return err
				}
			}

			// existing rows get a key of their own before the unique index goes on
			var ids []int64
			if err := tx.Model(&model.PendingOrder{}).
				Where("idempotency_key IS NULL OR idempotency_key = ''").
				Pluck("local_id", &ids).Error; err != nil {
				return err
			}
			for _, id := range ids {
				if err := tx.Model(&model.PendingOrder{}).
					Where("local_id = ?", id).
					Update("idempotency_key", uuid.New()).Error; err != nil {
					return err
				}
			}

			if !m.HasIndex(&model.PendingOrder{}, "IdempotencyKey") {
				return m.CreateIndex(&model.PendingOrder{}, "IdempotencyKey")
			}
			return nil
		},
	},
	{
		version: 3,
		name:    "store money as text on sqlite",
		up: func(tx *gorm.DB) error {
			// numeric is exact on postgres
			if tx.Dialector.Name() != "sqlite" {
				return nil
			}
			if err := rebuildTable(tx, &productV3{}, "products", productColumns,
				"idx_products_category"); err != nil {
				return err
			}
			return rebuildTable(tx, &offlineOrderV3{}, "offline_orders", orderColumns,
				"idx_offline_orders_tenant_synced", "idx_offline_orders_idempotency_key")
		},
	},
}

// LatestSchemaVersion is the version Migrate brings a store to
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies every schema version not yet recorded, each in its own
// transaction. Existing rows are preserved.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return model.StoreFailure("migrate", err)
	}

	var applied []int
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return model.StoreFailure("migrate", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   m.version,
				Name:      m.name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return model.StoreFailure("migrate", fmt.Errorf("version %d (%s): %w", m.version, m.name, err))
		}
	}
	return nil
}

// SchemaVersion returns the highest applied version, 0 for a fresh store
func SchemaVersion(db *gorm.DB) (int, error) {
	var v int
	err := db.Model(&SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&v).Error
	if err != nil {
		return 0, model.StoreFailure("schema version", err)
	}
	return v, nil
}
