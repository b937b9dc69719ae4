package domain

import (
	"context"
	"time"
)

// OrderRepository defines persistence for orders.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus sets a non-terminal status (processing, throttled).
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	// Complete marks the order completed with its result references. Returns
	// false when the order already left processing, so the terminal transition
	// happens exactly once.
	Complete(ctx context.Context, id string, resultRefs []string) (bool, error)
	// Fail marks the order failed. Same exactly-once contract as Complete.
	Fail(ctx context.Context, id string, reason string) (bool, error)
	CountByStatus(ctx context.Context, status OrderStatus) (int, error)
	// ListByStatus returns orders oldest-first by creation time.
	ListByStatus(ctx context.Context, status OrderStatus, limit int) ([]Order, error)
	// ListStale returns processing orders whose last update is older than the cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
	HasAssociatedPayment(ctx context.Context, id string) (bool, error)
}

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	ListByOrderID(ctx context.Context, orderID string) ([]Job, error)
}

// CreditLedger is the per-owner prepaid balance. Debit is atomic and fails
// closed with ErrInsufficientCredit, so the balance never goes negative.
type CreditLedger interface {
	Balance(ctx context.Context, ownerID string) (int, error)
	Debit(ctx context.Context, ownerID string, amount int) error
	Credit(ctx context.Context, ownerID string, amount int) error
}

// Notifier delivers user-facing text and progress updates. Send returns an
// opaque message reference usable for in-place progress edits.
type Notifier interface {
	Send(ctx context.Context, ownerRef, text string) (string, error)
	EditProgress(ctx context.Context, ownerRef, messageRef, text string) error
}
