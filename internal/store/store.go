// Package store provides the order aggregate model and its storage contract.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ItemKind discriminates what a line item references.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindService ItemKind = "service"
)

// Order lifecycle states. An order is written as StatusPending, then moved
// to StatusConfirmed once stock reconciliation succeeds, or to
// StatusReconcileFailed with the failure recorded on the row.
const (
	StatusPending         = "pending"
	StatusConfirmed       = "confirmed"
	StatusReconcileFailed = "reconciliation_failed"
)

// ClientSnapshot is a denormalized copy of the client record, captured at
// order-creation time. It is never refreshed afterwards.
type ClientSnapshot struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// StoreSnapshot is a denormalized copy of the store record, captured at
// order-creation time. Orders may be placed without a store.
type StoreSnapshot struct {
	ID      uuid.UUID
	Name    string
	Address string
}

// Order is the aggregate root.
type Order struct {
	ID             uuid.UUID
	Number         int64
	Status         string
	PaymentType    string
	Total          int64
	Client         ClientSnapshot
	Store          *StoreSnapshot
	ReconcileError *string
	CreatedAt      time.Time
}

// OrderItem is one line of an order. Quantity is zero for service items.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Kind        ItemKind
	ReferenceID uuid.UUID
	Name        string
	UnitPrice   int64
	Quantity    int32
	Subtotal    int64
}

// OrderStore is an interface for order storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type OrderStore interface {
	// NextNumber reserves the next order number via an atomic
	// fetch-and-increment. Numbers are monotonically increasing and unique.
	NextNumber(ctx context.Context) (int64, error)

	// Create persists the order and its items in a single transaction.
	// Returns the stored order and items with server-assigned fields set.
	Create(ctx context.Context, order *Order, items []OrderItem) (*Order, []OrderItem, error)

	// FindByID retrieves a single order and its items.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error)

	// ReplaceItems swaps the order's item list, updates the total and,
	// when non-nil, the payment type, and resets the order to pending.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	ReplaceItems(ctx context.Context, id uuid.UUID, paymentType *string, total int64, items []OrderItem) (*Order, []OrderItem, error)

	// UpdateStatus moves the order to the given lifecycle state and records
	// the reconciliation failure text, if any.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, reconcileError *string) error

	// Delete removes the order and returns the removed aggregate.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	Delete(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error)

	// Count returns the total number of persisted orders.
	Count(ctx context.Context) (int64, error)

	// List returns orders sorted by order number, without items.
	List(ctx context.Context, limit, offset int32) ([]Order, error)

	// FindByClient returns all orders placed by the given client, without items.
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]Order, error)
}
