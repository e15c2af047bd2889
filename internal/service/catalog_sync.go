package service

import (
	"context"
	"fmt"

	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/pkg/validator"

	"go.uber.org/zap"
)

// CatalogFetcher reads a tenant's authoritative catalog from the remote API
type CatalogFetcher interface {
	FetchProducts(ctx context.Context, tenantID string) ([]model.CatalogItem, error)
}

type CatalogSyncService interface {
	SyncCatalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error)
	Catalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error)
}

type catalogSyncService struct {
	remote CatalogFetcher
	repo   repository.CatalogRepository
	log    *zap.Logger
}

func NewCatalogSyncService(remote CatalogFetcher, repo repository.CatalogRepository, log *zap.Logger) CatalogSyncService {
	return &catalogSyncService{
		remote: remote,
		repo:   repo,
		log:    log.Named("catalog"),
	}
}

// SyncCatalog pulls the tenant's catalog and replaces the cached copy with it.
// On any failure the cached copy is left as it was. No retries here.
func (s *catalogSyncService) SyncCatalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error) {
	items, err := s.remote.FetchProducts(ctx, tenantID)
	if err != nil {
		s.log.Warn("catalog fetch failed, keeping cached catalog",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	items, err = prepareCatalog(tenantID, items)
	if err != nil {
		s.log.Warn("catalog payload rejected, keeping cached catalog",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	if err := s.repo.UpsertCatalog(ctx, tenantID, items); err != nil {
		s.log.Error("catalog replace failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	s.log.Info("catalog replaced", zap.String("tenant_id", tenantID), zap.Int("items", len(items)))
	return items, nil
}

// Catalog returns the cached catalog without touching the network
func (s *catalogSyncService) Catalog(ctx context.Context, tenantID string) ([]model.CatalogItem, error) {
	return s.repo.QueryCatalog(ctx, tenantID)
}

// prepareCatalog scopes items to the tenant, collapses repeated ids (last one
// wins) and rejects the whole payload if any item is invalid.
func prepareCatalog(tenantID string, items []model.CatalogItem) ([]model.CatalogItem, error) {
	pos := make(map[string]int, len(items))
	out := make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		it.TenantID = tenantID
		if err := validator.Check(&it); err != nil {
			return nil, model.Malformed("sync catalog", fmt.Errorf("item %q: %w", it.ID, err))
		}
		if i, seen := pos[it.ID]; seen {
			out[i] = it
			continue
		}
		pos[it.ID] = len(out)
		out = append(out, it)
	}
	return out, nil
}
