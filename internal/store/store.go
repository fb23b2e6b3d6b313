package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agrisupply/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ListItems retrieves all items, newest first
func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM items ORDER BY created_at DESC")
	return items, err
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByIDs retrieves multiple items by IDs
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// CreateItem persists a new item and fills in its assigned ID and timestamp
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (name, stock_level, unit_price, low_threshold)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, item, query,
		item.Name, item.StockLevel, item.UnitPrice, item.LowThreshold)
}

// ItemUpdate carries the fields of a partial item update; nil fields are
// left unchanged.
type ItemUpdate struct {
	Name         *string
	StockLevel   *int
	UnitPrice    *int64
	LowThreshold *int
}

// UpdateItem merges the given fields into an existing item and returns the
// updated record
func (s *Store) UpdateItem(ctx context.Context, id int64, upd ItemUpdate) (*models.Item, error) {
	query := `
		UPDATE items
		SET name          = COALESCE($1, name),
		    stock_level   = COALESCE($2, stock_level),
		    unit_price    = COALESCE($3, unit_price),
		    low_threshold = COALESCE($4, low_threshold)
		WHERE id = $5
		RETURNING *`

	var item models.Item
	err := s.db.GetContext(ctx, &item, query,
		upd.Name, upd.StockLevel, upd.UnitPrice, upd.LowThreshold, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item. Sales referencing it keep their item_id; list
// joins render an empty name for the dangling reference.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStockTx decrements an item's stock within a transaction, holding a
// row lock so the non-negative check and the write are atomic. Returns the
// remaining stock level.
func (s *Store) DecrementStockTx(ctx context.Context, itemID int64, quantity int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current int
	err = tx.GetContext(ctx, &current,
		"SELECT stock_level FROM items WHERE id = $1 FOR UPDATE", itemID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock item: %w", err)
	}

	if current < quantity {
		return 0, &InsufficientStockError{Available: current}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE items SET stock_level = stock_level - $1 WHERE id = $2",
		quantity, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return current - quantity, nil
}

// RestoreStock adds quantity back to an item's stock (compensation)
func (s *Store) RestoreStock(ctx context.Context, itemID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET stock_level = stock_level + $1 WHERE id = $2",
		quantity, itemID)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
