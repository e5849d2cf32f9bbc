package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/russross/meddler"
)

// GetOrder returns an order by its id, or nil when unknown.
func (s *Store) GetOrder(orderID string) (*Order, error) {
	order := new(Order)

	err := meddler.QueryRow(s.db, order,
		`SELECT * FROM orders WHERE order_id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	return order, nil
}

// InsertOrder stores a newly observed order.
func (s *Store) InsertOrder(order *Order) error {
	now := time.Now().Unix()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := meddler.Insert(s.db, "orders", order); err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.OrderID, err)
	}

	return nil
}

// SaveOrder persists changes to an existing order.
func (s *Store) SaveOrder(order *Order) error {
	order.UpdatedAt = time.Now().Unix()

	if err := meddler.Update(s.db, "orders", order); err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.OrderID, err)
	}

	return nil
}

// OrdersByStatus returns all orders in a given state, oldest first.
func (s *Store) OrdersByStatus(status OrderStatus) ([]*Order, error) {
	var orders []*Order

	err := meddler.QueryAll(s.db, &orders,
		`SELECT * FROM orders WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders with status %s: %w", status, err)
	}

	return orders, nil
}
