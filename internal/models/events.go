package models

import "time"

// Event types
const (
	EventTypeSaleRecorded    = "SALE_RECORDED"
	EventTypeSaleCompensated = "SALE_COMPENSATED"
	EventTypeStockAdjusted   = "STOCK_ADJUSTED"
	EventTypeLowStock        = "LOW_STOCK"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleRecordedEvent published when a sale is recorded and stock decremented
type SaleRecordedEvent struct {
	BaseEvent
	SaleID         int64  `json:"sale_id"`
	ItemID         int64  `json:"item_id"`
	Quantity       int    `json:"quantity"`
	TotalAmount    int64  `json:"total_amount"`
	RemainingStock int    `json:"remaining_stock"`
	PaymentMethod  string `json:"payment_method"`
}

// SaleCompensatedEvent published when a sale write failed after the stock
// decrement and the decrement was reversed
type SaleCompensatedEvent struct {
	BaseEvent
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// StockAdjustedEvent published on manual stock edits
type StockAdjustedEvent struct {
	BaseEvent
	ItemID     int64 `json:"item_id"`
	StockLevel int   `json:"stock_level"`
}

// LowStockEvent published by the alert worker when an item falls to or below
// its reorder threshold
type LowStockEvent struct {
	BaseEvent
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	StockLevel   int    `json:"stock_level"`
	LowThreshold int    `json:"low_threshold"`
}
