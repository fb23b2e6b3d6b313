package service

import (
	"context"
	"testing"

	"agrisupply/internal/models"
	"agrisupply/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture() (*CatalogService, *fakeStore, *fakeCache, *fakePublisher) {
	db := newFakeStore()
	cache := newFakeCache()
	publisher := &fakePublisher{}
	return NewCatalogService(db, cache, publisher, 5), db, cache, publisher
}

func TestCreateItemValidation(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()
	ctx := context.Background()

	for name, req := range map[string]*CreateItemRequest{
		"blank name":     {Name: "   ", StockLevel: 1, UnitPrice: 100},
		"negative stock": {Name: "Maize Seed", StockLevel: -1, UnitPrice: 100},
		"negative price": {Name: "Maize Seed", StockLevel: 1, UnitPrice: -100},
	} {
		_, err := svc.CreateItem(ctx, req)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, name)
	}
}

func TestCreateItemDefaultsThresholdAndMirrorsStock(t *testing.T) {
	svc, _, cache, _ := newCatalogFixture()

	item, err := svc.CreateItem(context.Background(), &CreateItemRequest{
		Name:       "Maize Seed 2kg",
		StockLevel: 12,
		UnitPrice:  45000,
	})

	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, 5, item.LowThreshold) // configured default
	assert.Equal(t, 12, cache.stock[item.ID])
}

func TestLiveStockServedFromMirror(t *testing.T) {
	svc, db, cache, _ := newCatalogFixture()
	item := db.putItem(models.Item{Name: "DAP Fertilizer", StockLevel: 9, UnitPrice: 650000, LowThreshold: 5})
	cache.stock[item.ID] = 9

	level, err := svc.LiveStock(context.Background(), item.ID)

	require.NoError(t, err)
	assert.Equal(t, 9, level)
}

func TestLiveStockFallsBackAndBackfillsMirror(t *testing.T) {
	svc, db, cache, _ := newCatalogFixture()
	item := db.putItem(models.Item{Name: "DAP Fertilizer", StockLevel: 7, UnitPrice: 650000, LowThreshold: 5})
	// item not mirrored

	level, err := svc.LiveStock(context.Background(), item.ID)

	require.NoError(t, err)
	assert.Equal(t, 7, level)
	assert.Equal(t, 7, cache.stock[item.ID])
}

func TestLiveStockUnknownItem(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()

	_, err := svc.LiveStock(context.Background(), 404)

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateItemStockPublishesAdjustment(t *testing.T) {
	svc, db, cache, publisher := newCatalogFixture()
	item := db.putItem(models.Item{Name: "DAP Fertilizer", StockLevel: 3, UnitPrice: 650000, LowThreshold: 5})

	newStock := 30
	updated, err := svc.UpdateItem(context.Background(), item.ID, &UpdateItemRequest{StockLevel: &newStock})

	require.NoError(t, err)
	assert.Equal(t, 30, updated.StockLevel)
	assert.Equal(t, 30, cache.stock[item.ID])
	require.Len(t, publisher.adjusted, 1)
	assert.Equal(t, item.ID, publisher.adjusted[0].ItemID)
	assert.Equal(t, 30, publisher.adjusted[0].StockLevel)
}

func TestUpdateItemPriceDoesNotPublishAdjustment(t *testing.T) {
	svc, db, _, publisher := newCatalogFixture()
	item := db.putItem(models.Item{Name: "DAP Fertilizer", StockLevel: 3, UnitPrice: 650000, LowThreshold: 5})

	newPrice := int64(700000)
	_, err := svc.UpdateItem(context.Background(), item.ID, &UpdateItemRequest{UnitPrice: &newPrice})

	require.NoError(t, err)
	assert.Empty(t, publisher.adjusted)
}

func TestUpdateItemNotFound(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()

	name := "Panga"
	_, err := svc.UpdateItem(context.Background(), 99, &UpdateItemRequest{Name: &name})

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteItemDropsMirror(t *testing.T) {
	svc, db, cache, _ := newCatalogFixture()
	item := db.putItem(models.Item{Name: "Panga", StockLevel: 8, UnitPrice: 35000, LowThreshold: 2})
	cache.stock[item.ID] = 8

	require.NoError(t, svc.DeleteItem(context.Background(), item.ID))

	_, inStore := db.items[item.ID]
	assert.False(t, inStore)
	_, inCache := cache.stock[item.ID]
	assert.False(t, inCache)
}

func TestCreateCustomerNameOnly(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()
	ctx := context.Background()

	customers, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	customer, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{Name: "Wanjiku Kamau"})
	require.NoError(t, err)
	assert.Nil(t, customer.Phone)
	assert.Nil(t, customer.Email)

	_, err = svc.CreateCustomer(ctx, &CreateCustomerRequest{Name: "   "})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	// Newest customer first in a creation-time-descending listing
	customers, err = svc.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, customer.ID, customers[0].ID)
}

func TestCreateCustomerInvalidEmail(t *testing.T) {
	svc, _, _, _ := newCatalogFixture()

	_, err := svc.CreateCustomer(context.Background(), &CreateCustomerRequest{
		Name:  "Otieno Odhiambo",
		Email: "not-an-email",
	})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestListItemsFetchFailure(t *testing.T) {
	svc, db, _, _ := newCatalogFixture()
	db.failListItems = true

	_, err := svc.ListItems(context.Background())

	var fetchErr *FetchFailedError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "items", fetchErr.Entity)
}
