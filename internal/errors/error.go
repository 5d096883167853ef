// Package errors provides custom error types for order-related operations.
package errors

import "errors"

// Request validation failures, detected before any remote call.
var ErrEmptyOrder = errors.New("order must contain at least one item")
var ErrInvalidItemKind = errors.New("item must reference exactly one of product or service")
var ErrInvalidQuantity = errors.New("product quantity must be a positive number")

// Pricing failures, detected after resolution and before persistence.
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrInvalidPrice = errors.New("resolved price is invalid")

// Collaborator lookup failures.
var ErrProductNotFound = errors.New("product not found")
var ErrServiceNotFound = errors.New("service not found")
var ErrClientNotFound = errors.New("client not found")
var ErrStoreNotFound = errors.New("store not found")
var ErrUpstream = errors.New("upstream service error")

// Post-persistence stock propagation failure. The order stays persisted;
// the failure is recorded on the order row.
var ErrStockReconcile = errors.New("stock reconciliation failed")

// Store failures.
var ErrOrderNotFound = errors.New("order not found")
var ErrCreateOrder = errors.New("failed to create order")
var ErrCreateOrderItem = errors.New("failed to create order item")
var ErrUpdateOrder = errors.New("failed to update order")
var ErrDeleteOrder = errors.New("failed to delete order")
var ErrOrderNumber = errors.New("failed to reserve order number")
var ErrFailedToFindOrder = errors.New("failed to find order")
var ErrFailedToListOrders = errors.New("failed to list orders")
var ErrFailedToCountOrders = errors.New("failed to count orders")
var ErrFailedToFindClientOrders = errors.New("failed to find client orders")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
