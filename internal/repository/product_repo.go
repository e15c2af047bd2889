package repository

import (
	"context"
	"time"

	"go-pos-terminal/internal/model"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	UpsertCatalog(ctx context.Context, tenantID string, items []model.CatalogItem) error
	QueryCatalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error)
}

type catalogRepo struct {
	db   *gorm.DB
	feed *ChangeFeed
}

func NewCatalogRepo(db *gorm.DB, feed *ChangeFeed) CatalogRepository {
	return &catalogRepo{db: db, feed: feed}
}

const insertBatchSize = 200

// UpsertCatalog replaces every cached item of the tenant with items in one
// transaction. Readers see either the old set or the new one.
func (r *catalogRepo) UpsertCatalog(ctx context.Context, tenantID string, items []model.CatalogItem) error {
	now := time.Now().UTC()
	rows := make([]model.CatalogItem, len(items))
	for i, it := range items {
		it.TenantID = tenantID
		it.SyncedAt = now
		rows[i] = it
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&model.CatalogItem{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return model.StoreFailure("upsert catalog", err)
	}

	r.feed.Publish(ctx, Change{Collection: CollectionCatalog, TenantID: tenantID})
	return nil
}

func (r *catalogRepo) QueryCatalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error) {
	items := make([]model.CatalogItem, 0)
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, model.StoreFailure("query catalog", err)
	}
	return items, nil
}
