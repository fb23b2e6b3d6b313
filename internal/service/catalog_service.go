package service

import (
	"context"
	"strings"
	"time"

	"agrisupply/internal/models"
	"agrisupply/internal/store"
	"agrisupply/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogStore is the persistence surface for item and customer CRUD.
type CatalogStore interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, id int64, upd store.ItemUpdate) (*models.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, id int64, upd store.CustomerUpdate) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

// StockPublisher publishes manual stock adjustments.
type StockPublisher interface {
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
}

// CatalogService handles item and customer management
type CatalogService struct {
	store            CatalogStore
	cache            StockCache
	publisher        StockPublisher
	defaultThreshold int
	logger           *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, cache StockCache, publisher StockPublisher, defaultThreshold int) *CatalogService {
	return &CatalogService{
		store:            store,
		cache:            cache,
		publisher:        publisher,
		defaultThreshold: defaultThreshold,
		logger:           util.GetLogger(),
	}
}

// SyncStockMirror pushes every item's current stock level into the mirror.
// Run at startup so the fast-path check sees warm data.
func (s *CatalogService) SyncStockMirror(ctx context.Context) error {
	s.logger.Info("Starting stock mirror sync")

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return &FetchFailedError{Entity: "items", Err: err}
	}

	for _, item := range items {
		if err := s.cache.SetStock(ctx, item.ID, item.StockLevel); err != nil {
			s.logger.Error("Failed to mirror stock",
				zap.Int64("item_id", item.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock mirror sync completed", zap.Int("count", len(items)))
	return nil
}

// CreateItemRequest represents a request to create an item
type CreateItemRequest struct {
	Name         string `json:"name"`
	StockLevel   int    `json:"stock_level"`
	UnitPrice    int64  `json:"unit_price"`
	LowThreshold *int   `json:"low_threshold,omitempty"`
}

// UpdateItemRequest represents a partial item update
type UpdateItemRequest struct {
	Name         *string `json:"name,omitempty"`
	StockLevel   *int    `json:"stock_level,omitempty"`
	UnitPrice    *int64  `json:"unit_price,omitempty"`
	LowThreshold *int    `json:"low_threshold,omitempty"`
}

// ListItems retrieves all items, newest first
func (s *CatalogService) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("items").Inc()
		return nil, &FetchFailedError{Entity: "items", Err: err}
	}
	return items, nil
}

// GetItem retrieves an item by ID
func (s *CatalogService) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return s.store.GetItemByID(ctx, id)
}

// CreateItem validates and persists a new item
func (s *CatalogService) CreateItem(ctx context.Context, req *CreateItemRequest) (*models.Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Msg: "item name is required"}
	}
	if req.StockLevel < 0 {
		return nil, &ValidationError{Msg: "stock level cannot be negative"}
	}
	if req.UnitPrice < 0 {
		return nil, &ValidationError{Msg: "unit price cannot be negative"}
	}

	threshold := s.defaultThreshold
	if req.LowThreshold != nil {
		if *req.LowThreshold < 0 {
			return nil, &ValidationError{Msg: "low threshold cannot be negative"}
		}
		threshold = *req.LowThreshold
	}

	item := &models.Item{
		Name:         name,
		StockLevel:   req.StockLevel,
		UnitPrice:    req.UnitPrice,
		LowThreshold: threshold,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, &PersistenceError{Op: "failed to create item", Err: err}
	}

	if err := s.cache.SetStock(ctx, item.ID, item.StockLevel); err != nil {
		s.logger.Warn("Failed to mirror stock for new item",
			zap.Int64("item_id", item.ID), zap.Error(err))
	}

	util.ItemsCreatedTotal.Inc()
	s.logger.Info("Item created", zap.Int64("item_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// UpdateItem merges the given fields into an existing item
func (s *CatalogService) UpdateItem(ctx context.Context, id int64, req *UpdateItemRequest) (*models.Item, error) {
	upd := store.ItemUpdate{
		StockLevel:   req.StockLevel,
		UnitPrice:    req.UnitPrice,
		LowThreshold: req.LowThreshold,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &ValidationError{Msg: "item name is required"}
		}
		upd.Name = &name
	}
	if req.StockLevel != nil && *req.StockLevel < 0 {
		return nil, &ValidationError{Msg: "stock level cannot be negative"}
	}
	if req.UnitPrice != nil && *req.UnitPrice < 0 {
		return nil, &ValidationError{Msg: "unit price cannot be negative"}
	}
	if req.LowThreshold != nil && *req.LowThreshold < 0 {
		return nil, &ValidationError{Msg: "low threshold cannot be negative"}
	}

	item, err := s.store.UpdateItem(ctx, id, upd)
	if err == store.ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &PersistenceError{Op: "failed to update item", Err: err}
	}

	if req.StockLevel != nil {
		if err := s.cache.SetStock(ctx, item.ID, item.StockLevel); err != nil {
			s.logger.Warn("Failed to mirror adjusted stock",
				zap.Int64("item_id", item.ID), zap.Error(err))
		}

		event := &models.StockAdjustedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockAdjusted,
				Timestamp: time.Now(),
			},
			ItemID:     item.ID,
			StockLevel: item.StockLevel,
		}
		if err := s.publisher.PublishStockAdjusted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}

	return item, nil
}

// LiveStock returns the item's current stock level, served from the mirror
// when it holds the item and from the database otherwise. A database fallback
// backfills the mirror for the next read.
func (s *CatalogService) LiveStock(ctx context.Context, id int64) (int, error) {
	if level, err := s.cache.GetStock(ctx, id); err == nil {
		return level, nil
	}

	item, err := s.store.GetItemByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetStock(ctx, id, item.StockLevel); err != nil {
		s.logger.Warn("Failed to backfill stock mirror",
			zap.Int64("item_id", id), zap.Error(err))
	}
	return item.StockLevel, nil
}

// DeleteItem removes an item. Sales referencing it are untouched; their
// denormalized name renders empty from then on.
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &PersistenceError{Op: "failed to delete item", Err: err}
	}

	if err := s.cache.DeleteStock(ctx, id); err != nil {
		s.logger.Warn("Failed to drop stock mirror for deleted item",
			zap.Int64("item_id", id), zap.Error(err))
	}

	util.ItemsDeletedTotal.Inc()
	return nil
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// UpdateCustomerRequest represents a partial customer update
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ListCustomers retrieves all customers, newest first
func (s *CatalogService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("customers").Inc()
		return nil, &FetchFailedError{Entity: "customers", Err: err}
	}
	return customers, nil
}

// GetCustomer retrieves a customer by ID
func (s *CatalogService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return s.store.GetCustomerByID(ctx, id)
}

// CreateCustomer validates and persists a new customer
func (s *CatalogService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Msg: "customer name is required"}
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, &ValidationError{Msg: "invalid email address"}
	}

	customer := &models.Customer{Name: name}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		customer.Phone = &phone
	}
	if email != "" {
		customer.Email = &email
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, &PersistenceError{Op: "failed to create customer", Err: err}
	}

	util.CustomersCreatedTotal.Inc()
	s.logger.Info("Customer created", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

// UpdateCustomer merges the given fields into an existing customer
func (s *CatalogService) UpdateCustomer(ctx context.Context, id int64, req *UpdateCustomerRequest) (*models.Customer, error) {
	upd := store.CustomerUpdate{Phone: req.Phone, Email: req.Email}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &ValidationError{Msg: "customer name is required"}
		}
		upd.Name = &name
	}
	if req.Email != nil && *req.Email != "" && !strings.Contains(*req.Email, "@") {
		return nil, &ValidationError{Msg: "invalid email address"}
	}

	customer, err := s.store.UpdateCustomer(ctx, id, upd)
	if err == store.ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &PersistenceError{Op: "failed to update customer", Err: err}
	}
	return customer, nil
}

// DeleteCustomer removes a customer. Sales referencing it keep their
// customer_id.
func (s *CatalogService) DeleteCustomer(ctx context.Context, id int64) error {
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &PersistenceError{Op: "failed to delete customer", Err: err}
	}
	return nil
}
