package store

import (
	"context"
	"database/sql"

	"agrisupply/internal/models"
)

// ListCustomers retrieves all customers, newest first
func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers ORDER BY created_at DESC")
	return customers, err
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCustomer persists a new customer and fills in its assigned ID and
// timestamp
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, customer, query,
		customer.Name, customer.Phone, customer.Email)
}

// CustomerUpdate carries the fields of a partial customer update; nil fields
// are left unchanged.
type CustomerUpdate struct {
	Name  *string
	Phone *string
	Email *string
}

// UpdateCustomer merges the given fields into an existing customer and
// returns the updated record
func (s *Store) UpdateCustomer(ctx context.Context, id int64, upd CustomerUpdate) (*models.Customer, error) {
	query := `
		UPDATE customers
		SET name  = COALESCE($1, name),
		    phone = COALESCE($2, phone),
		    email = COALESCE($3, email)
		WHERE id = $4
		RETURNING *`

	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, query, upd.Name, upd.Phone, upd.Email, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// DeleteCustomer removes a customer. Sales referencing it are untouched.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
