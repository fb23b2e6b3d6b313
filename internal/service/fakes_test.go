package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"agrisupply/internal/models"
	"agrisupply/internal/store"
)

// fakeStore is an in-memory stand-in for the Postgres store, shared by the
// service tests.
type fakeStore struct {
	items     map[int64]models.Item
	customers map[int64]models.Customer
	sales     []models.Sale
	processed map[string]string
	nextID    int64

	failCreateSale bool
	failListSales  bool
	failListItems  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:     make(map[int64]models.Item),
		customers: make(map[int64]models.Customer),
		processed: make(map[string]string),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) putItem(item models.Item) models.Item {
	if item.ID == 0 {
		item.ID = f.id()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeStore) ListItems(ctx context.Context) ([]models.Item, error) {
	if f.failListItems {
		return nil, errors.New("connection refused")
	}
	items := make([]models.Item, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (f *fakeStore) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := item
	return &copied, nil
}

func (f *fakeStore) CreateItem(ctx context.Context, item *models.Item) error {
	item.ID = f.id()
	item.CreatedAt = time.Now()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeStore) UpdateItem(ctx context.Context, id int64, upd store.ItemUpdate) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.StockLevel != nil {
		item.StockLevel = *upd.StockLevel
	}
	if upd.UnitPrice != nil {
		item.UnitPrice = *upd.UnitPrice
	}
	if upd.LowThreshold != nil {
		item.LowThreshold = *upd.LowThreshold
	}
	f.items[id] = item
	copied := item
	return &copied, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeStore) DecrementStockTx(ctx context.Context, itemID int64, quantity int) (int, error) {
	item, ok := f.items[itemID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if item.StockLevel < quantity {
		return 0, &store.InsufficientStockError{Available: item.StockLevel}
	}
	item.StockLevel -= quantity
	f.items[itemID] = item
	return item.StockLevel, nil
}

func (f *fakeStore) RestoreStock(ctx context.Context, itemID int64, quantity int) error {
	item, ok := f.items[itemID]
	if !ok {
		return store.ErrNotFound
	}
	item.StockLevel += quantity
	f.items[itemID] = item
	return nil
}

func (f *fakeStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	customers := make([]models.Customer, 0, len(f.customers))
	for _, customer := range f.customers {
		customers = append(customers, customer)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].CreatedAt.After(customers[j].CreatedAt) })
	return customers, nil
}

func (f *fakeStore) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	customer, ok := f.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := customer
	return &copied, nil
}

func (f *fakeStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	customer.ID = f.id()
	customer.CreatedAt = time.Now()
	f.customers[customer.ID] = *customer
	return nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, id int64, upd store.CustomerUpdate) (*models.Customer, error) {
	customer, ok := f.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		customer.Name = *upd.Name
	}
	if upd.Phone != nil {
		customer.Phone = upd.Phone
	}
	if upd.Email != nil {
		customer.Email = upd.Email
	}
	f.customers[id] = customer
	copied := customer
	return &copied, nil
}

func (f *fakeStore) DeleteCustomer(ctx context.Context, id int64) error {
	if _, ok := f.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.customers, id)
	return nil
}

func (f *fakeStore) ListSales(ctx context.Context) ([]models.Sale, error) {
	if f.failListSales {
		return nil, errors.New("connection refused")
	}
	sales := make([]models.Sale, len(f.sales))
	copy(sales, f.sales)
	sort.Slice(sales, func(i, j int) bool { return sales[i].Date.After(sales[j].Date) })
	return sales, nil
}

func (f *fakeStore) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	for _, sale := range f.sales {
		if sale.ID == id {
			copied := sale
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	for _, sale := range f.sales {
		if sale.IdempotencyKey == key {
			copied := sale
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	if f.failCreateSale {
		return errors.New("write rejected")
	}
	sale.ID = f.id()
	sale.CreatedAt = time.Now()
	f.sales = append(f.sales, *sale)
	return nil
}

func (f *fakeStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.processed[eventID] = eventType
	return nil
}

// fakeCache mirrors stock levels in a plain map.
type fakeCache struct {
	stock map[int64]int
	down  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{stock: make(map[int64]int)}
}

func (f *fakeCache) DecrementStock(ctx context.Context, itemID int64, quantity int) (int, bool, error) {
	if f.down {
		return 0, false, errors.New("redis unavailable")
	}
	level, ok := f.stock[itemID]
	if !ok {
		return 0, false, errors.New("stock not mirrored")
	}
	if level < quantity {
		return level, false, nil
	}
	f.stock[itemID] = level - quantity
	return level - quantity, true, nil
}

func (f *fakeCache) RestoreStock(ctx context.Context, itemID int64, quantity int) error {
	if f.down {
		return errors.New("redis unavailable")
	}
	f.stock[itemID] += quantity
	return nil
}

func (f *fakeCache) SetStock(ctx context.Context, itemID int64, level int) error {
	if f.down {
		return errors.New("redis unavailable")
	}
	f.stock[itemID] = level
	return nil
}

func (f *fakeCache) GetStock(ctx context.Context, itemID int64) (int, error) {
	if f.down {
		return 0, errors.New("redis unavailable")
	}
	level, ok := f.stock[itemID]
	if !ok {
		return 0, errors.New("stock not mirrored")
	}
	return level, nil
}

func (f *fakeCache) DeleteStock(ctx context.Context, itemID int64) error {
	delete(f.stock, itemID)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	recorded    []*models.SaleRecordedEvent
	compensated []*models.SaleCompensatedEvent
	adjusted    []*models.StockAdjustedEvent
	lowStock    []*models.LowStockEvent
}

func (f *fakePublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	f.recorded = append(f.recorded, event)
	return nil
}

func (f *fakePublisher) PublishSaleCompensated(ctx context.Context, event *models.SaleCompensatedEvent) error {
	f.compensated = append(f.compensated, event)
	return nil
}

func (f *fakePublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	f.adjusted = append(f.adjusted, event)
	return nil
}

func (f *fakePublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	f.lowStock = append(f.lowStock, event)
	return nil
}
