package models

import "time"

// Item represents a stocked inventory item
type Item struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	StockLevel   int       `db:"stock_level" json:"stock_level"`
	UnitPrice    int64     `db:"unit_price" json:"unit_price"` // KSh cents
	LowThreshold int       `db:"low_threshold" json:"low_threshold"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i Item) IsLowStock() bool {
	return i.StockLevel <= i.LowThreshold
}

// Customer represents a walk-in or account customer
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Sale represents a recorded sales transaction. ItemName and CustomerName are
// denormalized at read time via joins; they are empty when the reference is
// absent or dangling.
type Sale struct {
	ID             int64     `db:"id" json:"id"`
	Date           time.Time `db:"date" json:"date"`
	ItemID         int64     `db:"item_id" json:"item_id"`
	ItemName       string    `db:"item_name" json:"item_name,omitempty"`
	Quantity       int       `db:"quantity" json:"quantity"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"` // quantity * unit price at time of sale
	CustomerID     *int64    `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName   string    `db:"customer_name" json:"customer_name,omitempty"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Payment methods
const (
	PaymentCash  = "Cash"
	PaymentMpesa = "M-Pesa"
	PaymentCard  = "Card"
	PaymentOther = "Other"
)

// ValidPaymentMethod reports whether m is one of the accepted payment methods.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentMpesa, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// ProcessedEvent for worker idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
