package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrisupply/internal/models"
	"agrisupply/internal/store"
	"agrisupply/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore is the persistence surface the alert flow depends on.
type AlertStore interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AlertPublisher publishes low-stock alerts.
type AlertPublisher interface {
	PublishLowStock(ctx context.Context, event *models.LowStockEvent) error
}

// AlertService evaluates recorded sales for low-stock conditions and emits
// alert events. Event IDs are tracked so redelivered Kafka messages are
// processed once.
type AlertService struct {
	store     AlertStore
	publisher AlertPublisher
	logger    *zap.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(store AlertStore, publisher AlertPublisher) *AlertService {
	return &AlertService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// HandleSaleRecorded re-reads the sold item and publishes a LowStock event
// when it sits at or below its reorder threshold
func (s *AlertService) HandleSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	ctx, span := util.StartSpan(ctx, "AlertService.HandleSaleRecorded")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	item, err := s.store.GetItemByID(ctx, event.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		// Item deleted between sale and alert evaluation; nothing to check.
		return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}

	if item.IsLowStock() {
		util.LowStockAlertsTotal.Inc()
		s.logger.Warn("Item low on stock",
			zap.Int64("item_id", item.ID),
			zap.String("name", item.Name),
			zap.Int("stock_level", item.StockLevel),
			zap.Int("low_threshold", item.LowThreshold))

		alert := &models.LowStockEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeLowStock,
				Timestamp: time.Now(),
			},
			ItemID:       item.ID,
			ItemName:     item.Name,
			StockLevel:   item.StockLevel,
			LowThreshold: item.LowThreshold,
		}
		if err := s.publisher.PublishLowStock(ctx, alert); err != nil {
			s.logger.Error("Failed to publish LowStock event", zap.Error(err))
		}
	}

	return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
