package service

import (
	"context"
	"testing"
	"time"

	"agrisupply/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleRecordedEvent(eventID string, itemID int64) *models.SaleRecordedEvent {
	return &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID,
			EventType: models.EventTypeSaleRecorded,
			Timestamp: time.Now(),
		},
		ItemID:   itemID,
		Quantity: 1,
	}
}

func TestHandleSaleRecordedPublishesLowStockAtThreshold(t *testing.T) {
	db := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewAlertService(db, publisher)

	item := db.putItem(models.Item{Name: "Chick Mash 20kg", StockLevel: 5, LowThreshold: 5})

	err := svc.HandleSaleRecorded(context.Background(), saleRecordedEvent("evt-1", item.ID))

	require.NoError(t, err)
	require.Len(t, publisher.lowStock, 1)
	assert.Equal(t, item.ID, publisher.lowStock[0].ItemID)
	assert.Equal(t, 5, publisher.lowStock[0].StockLevel)

	processed, err := db.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestHandleSaleRecordedSkipsHealthyStock(t *testing.T) {
	db := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewAlertService(db, publisher)

	item := db.putItem(models.Item{Name: "Maize Seed 2kg", StockLevel: 6, LowThreshold: 5})

	err := svc.HandleSaleRecorded(context.Background(), saleRecordedEvent("evt-2", item.ID))

	require.NoError(t, err)
	assert.Empty(t, publisher.lowStock)
}

func TestHandleSaleRecordedIdempotent(t *testing.T) {
	db := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewAlertService(db, publisher)

	item := db.putItem(models.Item{Name: "Chick Mash 20kg", StockLevel: 1, LowThreshold: 5})
	event := saleRecordedEvent("evt-3", item.ID)

	require.NoError(t, svc.HandleSaleRecorded(context.Background(), event))
	require.NoError(t, svc.HandleSaleRecorded(context.Background(), event))

	// Redelivery does not produce a second alert
	assert.Len(t, publisher.lowStock, 1)
}

func TestHandleSaleRecordedToleratesDeletedItem(t *testing.T) {
	db := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewAlertService(db, publisher)

	err := svc.HandleSaleRecorded(context.Background(), saleRecordedEvent("evt-4", 404))

	require.NoError(t, err)
	assert.Empty(t, publisher.lowStock)

	processed, err := db.IsEventProcessed(context.Background(), "evt-4")
	require.NoError(t, err)
	assert.True(t, processed)
}
