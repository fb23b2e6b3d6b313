package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrisupply/internal/models"
	"agrisupply/internal/store"
	"agrisupply/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleStore is the persistence surface the sale recording flow depends on.
type SaleStore interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	DecrementStockTx(ctx context.Context, itemID int64, quantity int) (int, error)
	RestoreStock(ctx context.Context, itemID int64, quantity int) error
	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// StockCache mirrors per-item stock levels for fast reads and an advisory
// decrement ahead of the database. All cache failures are non-fatal; the
// store stays authoritative.
type StockCache interface {
	DecrementStock(ctx context.Context, itemID int64, quantity int) (remaining int, ok bool, err error)
	RestoreStock(ctx context.Context, itemID int64, quantity int) error
	SetStock(ctx context.Context, itemID int64, level int) error
	GetStock(ctx context.Context, itemID int64) (int, error)
	DeleteStock(ctx context.Context, itemID int64) error
}

// SalePublisher publishes sale lifecycle events.
type SalePublisher interface {
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
	PublishSaleCompensated(ctx context.Context, event *models.SaleCompensatedEvent) error
}

// SaleService handles the sale recording flow
type SaleService struct {
	store     SaleStore
	cache     StockCache
	publisher SalePublisher
	logger    *zap.Logger
}

// NewSaleService creates a new sale service
func NewSaleService(store SaleStore, cache StockCache, publisher SalePublisher) *SaleService {
	return &SaleService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// RecordSaleRequest represents a request to record a sale
type RecordSaleRequest struct {
	ItemID         int64  `json:"item_id"`
	Quantity       int    `json:"quantity"`
	CustomerID     *int64 `json:"customer_id,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Date           string `json:"date,omitempty"` // RFC3339 or YYYY-MM-DD; defaults to now
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RecordSale validates the request, decrements the item's stock atomically,
// then persists the sale. The decrement runs first because it is the cheap
// side to reverse: if the sale write fails afterwards the decrement is
// compensated, so no sale ever exists against stock that was not reduced.
func (s *SaleService) RecordSale(ctx context.Context, req *RecordSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.RecordSale")
	defer span.End()

	if req.ItemID == 0 || req.Quantity <= 0 {
		util.SalesFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, &ValidationError{Msg: "missing item or quantity"}
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !models.ValidPaymentMethod(method) {
		util.SalesFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown payment method %q", req.PaymentMethod)}
	}

	date, err := parseSaleDate(req.Date, time.Now())
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetSaleByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, &PersistenceError{Op: "failed to check idempotency", Err: err}
	}
	if existing != nil {
		s.logger.Info("Duplicate sale request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("sale_id", existing.ID))
		return existing, nil
	}

	// Authoritative read, not a cached snapshot: the price and the stock
	// check both come from current state.
	item, err := s.store.GetItemByID(ctx, req.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		util.SalesFailedTotal.WithLabelValues("unknown_item").Inc()
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown item %d", req.ItemID)}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "failed to load item", Err: err}
	}

	totalAmount := int64(req.Quantity) * item.UnitPrice

	// Fast path: apply the decrement to the stock mirror first. A mirror
	// rejection is only a hint that stock may be short; the mirror can have
	// drifted below the database, so the transactional decrement below still
	// decides, and the mirror is resynced from its answer either way.
	cacheApplied := false
	if available, ok, cacheErr := s.cache.DecrementStock(ctx, item.ID, req.Quantity); cacheErr != nil {
		s.logger.Warn("Stock mirror unavailable, using database only",
			zap.Int64("item_id", item.ID), zap.Error(cacheErr))
	} else if !ok {
		s.logger.Warn("Stock mirror rejected decrement, deferring to database",
			zap.Int64("item_id", item.ID),
			zap.Int("mirrored", available),
			zap.Int("quantity", req.Quantity))
	} else {
		cacheApplied = true
	}

	start := time.Now()
	remaining, err := s.store.DecrementStockTx(ctx, item.ID, req.Quantity)
	util.StockDecrementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		var insufficientErr *InsufficientStockError
		if errors.As(err, &insufficientErr) {
			// The mirror had drifted from the database; resync it.
			_ = s.cache.SetStock(ctx, item.ID, insufficientErr.Available)
			util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficientErr
		}
		if cacheApplied {
			_ = s.cache.RestoreStock(ctx, item.ID, req.Quantity)
		}
		if errors.Is(err, store.ErrNotFound) {
			util.SalesFailedTotal.WithLabelValues("unknown_item").Inc()
			return nil, &ValidationError{Msg: fmt.Sprintf("unknown item %d", req.ItemID)}
		}
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, &PersistenceError{Op: "failed to decrement stock", Err: err}
	}
	if !cacheApplied {
		_ = s.cache.SetStock(ctx, item.ID, remaining)
	}

	sale := &models.Sale{
		Date:           date,
		ItemID:         item.ID,
		ItemName:       item.Name,
		Quantity:       req.Quantity,
		TotalAmount:    totalAmount,
		CustomerID:     req.CustomerID,
		PaymentMethod:  method,
		Notes:          strings.TrimSpace(req.Notes),
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.store.CreateSale(ctx, sale); err != nil {
		s.compensateDecrement(ctx, item.ID, req.Quantity, err)
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, &PersistenceError{Op: "failed to record sale", Err: err}
	}

	util.SalesRecordedTotal.Inc()
	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("item_id", item.ID),
		zap.Int("quantity", req.Quantity),
		zap.Int64("total_amount", totalAmount),
		zap.Int("remaining_stock", remaining))

	event := &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleRecorded,
			Timestamp: time.Now(),
		},
		SaleID:         sale.ID,
		ItemID:         item.ID,
		Quantity:       req.Quantity,
		TotalAmount:    totalAmount,
		RemainingStock: remaining,
		PaymentMethod:  method,
	}

	if err := s.publisher.PublishSaleRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
	}

	return sale, nil
}

// compensateDecrement restores stock after the sale write failed, leaving the
// system as if the request never happened.
func (s *SaleService) compensateDecrement(ctx context.Context, itemID int64, quantity int, cause error) {
	util.SaleCompensationsTotal.Inc()
	s.logger.Warn("Sale write failed after stock decrement - compensating",
		zap.Int64("item_id", itemID),
		zap.Int("quantity", quantity),
		zap.Error(cause))

	if err := s.store.RestoreStock(ctx, itemID, quantity); err != nil {
		s.logger.Error("Failed to restore stock during compensation",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}
	if err := s.cache.RestoreStock(ctx, itemID, quantity); err != nil {
		s.logger.Error("Failed to restore stock mirror during compensation",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	event := &models.SaleCompensatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCompensated,
			Timestamp: time.Now(),
		},
		ItemID:   itemID,
		Quantity: quantity,
		Reason:   cause.Error(),
	}
	if err := s.publisher.PublishSaleCompensated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCompensated event", zap.Error(err))
	}
}

// ListSales retrieves all sales, newest first, with denormalized names
func (s *SaleService) ListSales(ctx context.Context) ([]models.Sale, error) {
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("sales").Inc()
		return nil, &FetchFailedError{Entity: "sales", Err: err}
	}
	return sales, nil
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	return s.store.GetSaleByID(ctx, id)
}

func parseSaleDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, &ValidationError{Msg: fmt.Sprintf("invalid sale date %q", value)}
}
