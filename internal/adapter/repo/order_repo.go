package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"motionlab/internal/domain"
	"motionlab/internal/infra"
	"motionlab/internal/sqlinline"
)

// OrderRepositoryPG implements domain.OrderRepository.
type OrderRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewOrderRepository creates a new order repository backed by PostgreSQL.
func NewOrderRepository(sql infra.SQLExecutor) *OrderRepositoryPG {
	return &OrderRepositoryPG{sql: sql}
}

// GetByID fetches an order by its identifier.
func (r *OrderRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QGetOrder, id)
	order, err := scanOrder(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// UpdateStatus sets a non-terminal status. Rows already in a terminal status
// are never touched.
func (r *OrderRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if status.Terminal() {
		return fmt.Errorf("use Complete or Fail for terminal status %q", status)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateOrderStatus, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Complete marks the order completed exactly once.
func (r *OrderRepositoryPG) Complete(ctx context.Context, id string, resultRefs []string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteOrder, id, resultRefs)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Fail marks the order failed exactly once.
func (r *OrderRepositoryPG) Fail(ctx context.Context, id string, reason string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailOrder, id, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountByStatus re-queries the durable store so the count stays correct across
// process restarts.
func (r *OrderRepositoryPG) CountByStatus(ctx context.Context, status domain.OrderStatus) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCountOrdersByStatus, status)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListByStatus returns orders oldest-first by creation time.
func (r *OrderRepositoryPG) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListOrdersByStatus, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListStale returns processing orders whose last update predates the cutoff.
func (r *OrderRepositoryPG) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListStaleProcessingOrders, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// HasAssociatedPayment reports whether a one-off payment backs the order. When
// false the order is credit-funded.
func (r *OrderRepositoryPG) HasAssociatedPayment(ctx context.Context, id string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QOrderHasPayment, id)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.OwnerID,
		&o.Status,
		&o.Kind,
		&o.PhotoRef,
		&o.SecondPhotoRef,
		&o.Prompt,
		&o.ResultRefs,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

var _ domain.OrderRepository = (*OrderRepositoryPG)(nil)
