package repository

import (
	"context"
	"errors"
	"time"

	"go-pos-terminal/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	AppendOrder(ctx context.Context, order *model.PendingOrder) (int64, error)
	ListUnsynced(ctx context.Context, tenantID string) ([]model.PendingOrder, error)
	MarkSynced(ctx context.Context, localID int64) error
	FindByLocalID(ctx context.Context, localID int64) (*model.PendingOrder, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.PendingOrder, error)
	CountUnsynced(ctx context.Context, tenantID string) (int64, error)
	PurgeSynced(ctx context.Context, tenantID string, before time.Time) (int64, error)
}

type orderRepo struct {
	db   *gorm.DB
	feed *ChangeFeed
}

func NewOrderRepo(db *gorm.DB, feed *ChangeFeed) OrderRepository {
	return &orderRepo{db: db, feed: feed}
}

// AppendOrder stores a new unsynced order and returns its local id
func (r *orderRepo) AppendOrder(ctx context.Context, order *model.PendingOrder) (int64, error) {
	order.LocalID = 0 // always assigned by the store
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return 0, model.StoreFailure("append order", err)
	}

	r.feed.Publish(ctx, Change{Collection: CollectionOrders, TenantID: order.TenantID})
	return order.LocalID, nil
}

// ListUnsynced returns the tenant's undelivered orders in creation order
func (r *orderRepo) ListUnsynced(ctx context.Context, tenantID string) ([]model.PendingOrder, error) {
	orders := make([]model.PendingOrder, 0)
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND synced = ?", tenantID, false).
		Order("local_id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, model.StoreFailure("list unsynced orders", err)
	}
	return orders, nil
}

// MarkSynced flips synced to true. Calling it on an already synced order is a no-op.
func (r *orderRepo) MarkSynced(ctx context.Context, localID int64) error {
	order, err := r.FindByLocalID(ctx, localID)
	if err != nil {
		return err
	}
	if order.Synced {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.PendingOrder{}).
		Where("local_id = ? AND synced = ?", localID, false).
		Updates(map[string]interface{}{
			"synced":    true,
			"synced_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return model.StoreFailure("mark order synced", res.Error)
	}

	// zero rows means a concurrent caller got there first
	if res.RowsAffected > 0 {
		r.feed.Publish(ctx, Change{Collection: CollectionOrders, TenantID: order.TenantID})
	}
	return nil
}

func (r *orderRepo) FindByLocalID(ctx context.Context, localID int64) (*model.PendingOrder, error) {
	var order model.PendingOrder
	err := r.db.WithContext(ctx).First(&order, "local_id = ?", localID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, model.StoreFailure("find order", err)
	}
	return &order, nil
}

// ListByTenant returns the local audit trail, newest first. limit <= 0 means all.
func (r *orderRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.PendingOrder, error) {
	orders := make([]model.PendingOrder, 0)
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("local_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, model.StoreFailure("list orders", err)
	}
	return orders, nil
}

func (r *orderRepo) CountUnsynced(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PendingOrder{}).
		Where("tenant_id = ? AND synced = ?", tenantID, false).
		Count(&n).Error
	if err != nil {
		return 0, model.StoreFailure("count unsynced orders", err)
	}
	return n, nil
}

// PurgeSynced deletes delivered orders synced before the cutoff. Unsynced
// orders are never touched.
func (r *orderRepo) PurgeSynced(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND synced = ? AND synced_at < ?", tenantID, true, before.UTC()).
		Delete(&model.PendingOrder{})
	if res.Error != nil {
		return 0, model.StoreFailure("purge synced orders", res.Error)
	}
	return res.RowsAffected, nil
}
