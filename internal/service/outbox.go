package service

import (
	"context"
	"fmt"
	"time"

	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/pkg/validator"

	"go.uber.org/zap"
)

// OrderSubmitter delivers one order to the remote API
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order model.PendingOrder) error
}

type OutboxService interface {
	RecordOrder(ctx context.Context, order *model.PendingOrder) (int64, error)
	FlushPending(ctx context.Context, tenantID string) (*model.FlushReport, error)
	PendingOrders(ctx context.Context, tenantID string) ([]model.PendingOrder, error)
	History(ctx context.Context, tenantID string, limit int) ([]model.PendingOrder, error)
	Purge(ctx context.Context, tenantID string, before time.Time) (int64, error)
}

type outboxService struct {
	remote OrderSubmitter
	repo   repository.OrderRepository
	log    *zap.Logger
}

func NewOutboxService(remote OrderSubmitter, repo repository.OrderRepository, log *zap.Logger) OutboxService {
	return &outboxService{
		remote: remote,
		repo:   repo,
		log:    log.Named("outbox"),
	}
}

// RecordOrder stores a sale locally. It never waits on the network; once it
// returns a local id the sale is complete from the till's point of view.
func (s *outboxService) RecordOrder(ctx context.Context, order *model.PendingOrder) (int64, error) {
	if err := validator.Check(order); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidOrder, err)
	}

	id, err := s.repo.AppendOrder(ctx, order)
	if err != nil {
		s.log.Error("order could not be recorded", zap.String("tenant_id", order.TenantID), zap.Error(err))
		return 0, err
	}

	s.log.Info("order recorded",
		zap.String("tenant_id", order.TenantID),
		zap.Int64("local_id", id),
		zap.String("total", order.TotalAmount.String()))
	return id, nil
}

// FlushPending submits every unsynced order of the tenant in creation order.
// A failed order is reported and skipped; it never blocks the ones after it.
// The returned error is only set when the outbox itself could not be read.
func (s *outboxService) FlushPending(ctx context.Context, tenantID string) (*model.FlushReport, error) {
	report := &model.FlushReport{TenantID: tenantID}

	pending, err := s.repo.ListUnsynced(ctx, tenantID)
	if err != nil {
		s.log.Error("outbox unreadable", zap.String("tenant_id", tenantID), zap.Error(err))
		return report, err
	}

	for _, order := range pending {
		report.Attempted++

		if err := s.remote.SubmitOrder(ctx, order); err != nil {
			report.RecordFailure(order.LocalID, err)
			s.log.Warn("order delivery failed",
				zap.String("tenant_id", tenantID), zap.Int64("local_id", order.LocalID), zap.Error(err))
			continue
		}

		// the remote has it now; if this write fails the order is resent
		// next cycle under the same idempotency key
		if err := s.repo.MarkSynced(ctx, order.LocalID); err != nil {
			report.RecordFailure(order.LocalID, err)
			s.log.Error("order delivered but not marked synced",
				zap.String("tenant_id", tenantID), zap.Int64("local_id", order.LocalID), zap.Error(err))
			continue
		}
		report.RecordDelivered()
	}

	if report.Attempted > 0 {
		s.log.Info("outbox flushed",
			zap.String("tenant_id", tenantID),
			zap.Int("delivered", report.Delivered),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *outboxService) PendingOrders(ctx context.Context, tenantID string) ([]model.PendingOrder, error) {
	return s.repo.ListUnsynced(ctx, tenantID)
}

func (s *outboxService) History(ctx context.Context, tenantID string, limit int) ([]model.PendingOrder, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit)
}

// Purge drops delivered orders synced before the cutoff
func (s *outboxService) Purge(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	n, err := s.repo.PurgeSynced(ctx, tenantID, before)
	if err != nil {
		return 0, err
	}
	s.log.Info("synced orders purged", zap.String("tenant_id", tenantID), zap.Int64("rows", n))
	return n, nil
}
