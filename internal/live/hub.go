package live

import (
	"context"

	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/repository"

	"go.uber.org/zap"
)

// Hub turns committed store writes into fresh snapshots for subscribers.
// Snapshots are re-queried and delivered on the writer's goroutine, so by the
// time a write call returns every matching view already holds the new result.
type Hub struct {
	catalog repository.CatalogRepository
	orders  repository.OrderRepository
	feed    *repository.ChangeFeed
	log     *zap.Logger
}

func NewHub(catalog repository.CatalogRepository, orders repository.OrderRepository, feed *repository.ChangeFeed, log *zap.Logger) *Hub {
	return &Hub{
		catalog: catalog,
		orders:  orders,
		feed:    feed,
		log:     log.Named("live"),
	}
}

// ObserveCatalog streams the tenant's cached catalog, starting with the
// current snapshot. The view closes when ctx is done or Close is called.
func (h *Hub) ObserveCatalog(ctx context.Context, tenantID string) (*View[[]model.CatalogItem], error) {
	return observe(ctx, h, repository.CollectionCatalog, tenantID, func(ctx context.Context) ([]model.CatalogItem, error) {
		return h.catalog.QueryCatalog(ctx, tenantID)
	})
}

// ObservePending streams the tenant's orders still waiting for delivery
func (h *Hub) ObservePending(ctx context.Context, tenantID string) (*View[[]model.PendingOrder], error) {
	return observe(ctx, h, repository.CollectionOrders, tenantID, func(ctx context.Context) ([]model.PendingOrder, error) {
		return h.orders.ListUnsynced(ctx, tenantID)
	})
}

func observe[T any](ctx context.Context, h *Hub, coll repository.Collection, tenantID string, query func(context.Context) (T, error)) (*View[T], error) {
	v := newView[T]()

	// subscribe before the first query so no write can slip in between
	v.unsub = h.feed.Subscribe(func(_ context.Context, c repository.Change) {
		if c.Collection != coll || c.TenantID != tenantID {
			return
		}
		if err := v.refresh(ctx, query); err != nil {
			h.log.Warn("live view refresh failed",
				zap.String("collection", string(coll)),
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	})

	if err := v.refresh(ctx, query); err != nil {
		v.Close()
		return nil, err
	}
	v.closeOnDone(ctx)
	return v, nil
}
