package store

import (
	"context"
	"database/sql"

	"agrisupply/internal/models"
)

// saleColumns joins item and customer names onto each sale row. Dangling or
// absent references come back as empty strings.
const saleColumns = `
	s.id, s.date, s.item_id, COALESCE(i.name, '') AS item_name,
	s.quantity, s.total_amount, s.customer_id, COALESCE(c.name, '') AS customer_name,
	s.payment_method, s.notes, s.idempotency_key, s.created_at`

const saleJoins = `
	FROM sales s
	LEFT JOIN items i ON i.id = s.item_id
	LEFT JOIN customers c ON c.id = s.customer_id`

// ListSales retrieves all sales ordered by transaction date descending, with
// denormalized item and customer names attached
func (s *Store) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT "+saleColumns+saleJoins+" ORDER BY s.date DESC, s.id DESC")
	return sales, err
}

// GetSaleByID retrieves a sale by ID with denormalized names attached
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale,
		"SELECT "+saleColumns+saleJoins+" WHERE s.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleByIdempotencyKey retrieves a sale by idempotency key, or nil when no
// sale was recorded under the key
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale,
		"SELECT "+saleColumns+saleJoins+" WHERE s.idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// CreateSale persists a new sale and fills in its assigned ID and timestamp
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (date, item_id, quantity, total_amount, customer_id, payment_method, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query,
		sale.Date, sale.ItemID, sale.Quantity, sale.TotalAmount,
		sale.CustomerID, sale.PaymentMethod, sale.Notes, sale.IdempotencyKey)
	return row.Scan(&sale.ID, &sale.CreatedAt)
}
