// Package service implements the order assembly workflow: resolve the
// requested items against the owning services, price them, persist the
// aggregate and propagate stock effects.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/abgdnv/orders/internal/catalog"
	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/pricing"
	"github.com/abgdnv/orders/internal/reconcile"
	"github.com/abgdnv/orders/internal/store"
	"github.com/abgdnv/orders/pkg/messaging"
	"github.com/abgdnv/orders/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MaxPageSize caps the page size of order listings. Requests above the cap
// are rejected, not truncated.
const MaxPageSize = 100

// OrderService defines the methods for managing orders.
// It abstracts the underlying business logic and data access.
type OrderService interface {
	// Create runs the full assembly pipeline for a new order and returns
	// the persisted order together with the per-item stock results.
	Create(ctx context.Context, credential string, order OrderCreateDto) (*OrderDto, []StockDto, error)

	// FindByID retrieves a single order by its unique identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*OrderDto, error)

	// Update replaces the order's item list, reprices it and re-propagates
	// stock effects. Returns ErrOrderNotFound before any remote call if the
	// order does not exist.
	Update(ctx context.Context, credential string, id uuid.UUID, order OrderUpdateDto) (*OrderDto, []StockDto, error)

	// Delete removes an order and returns the removed aggregate.
	Delete(ctx context.Context, id uuid.UUID) (*OrderDto, error)

	// List returns one page of orders plus pagination totals.
	List(ctx context.Context, page, limit int32) (*OrderListDto, error)

	// FindByClient returns all orders placed by the given client.
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]OrderDto, error)

	// Count returns the total number of orders.
	Count(ctx context.Context) (int64, error)
}

// Service implements OrderService.
type Service struct {
	orderStore    store.OrderStore
	resolver      *catalog.Resolver
	reconciler    *reconcile.Reconciler
	publisher     messaging.Publisher
	logger        *slog.Logger
	ordersCounter metric.Int64Counter
}

// NewService creates a new instance of OrderService with the provided collaborators.
func NewService(orderStore store.OrderStore, resolver *catalog.Resolver, reconciler *reconcile.Reconciler, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("order-service")
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	return &Service{
		orderStore:    orderStore,
		resolver:      resolver,
		reconciler:    reconciler,
		publisher:     publisher,
		logger:        logger.With("component", "service"),
		ordersCounter: ordersCounter,
	}
}

// OrderDto represents the data transfer object for an order.
type OrderDto struct {
	ID             uuid.UUID      `json:"id"`
	Number         string         `json:"order_number"`
	Status         string         `json:"status"`
	PaymentType    string         `json:"payment_type"`
	Total          int64          `json:"total"`
	Client         ClientDto      `json:"client"`
	Store          *StoreDto      `json:"store,omitempty"`
	ReconcileError *string        `json:"reconcile_error,omitempty"`
	CreatedAt      string         `json:"created_at"`
	Items          []OrderItemDto `json:"items,omitempty"`
}

type OrderItemDto struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	ReferenceID uuid.UUID `json:"reference_id"`
	Name        string    `json:"name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int32     `json:"quantity,omitempty"`
	Subtotal    int64     `json:"subtotal"`
}

type ClientDto struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type StoreDto struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
}

// StockDto is the outcome of one item's post-persistence stock call.
type StockDto struct {
	Kind        string    `json:"kind"`
	ReferenceID uuid.UUID `json:"reference_id"`
	Quantity    int32     `json:"quantity,omitempty"`
	Remaining   *int32    `json:"stock_remaining,omitempty"`
}

// ItemCreateDto is one requested line item. Exactly one of ProductID and
// ServiceID must be set; the pricer rejects anything else.
type ItemCreateDto struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	Quantity  int32      `json:"quantity,omitempty"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	ClientID    uuid.UUID       `json:"client_id" validate:"required"`
	StoreID     *uuid.UUID      `json:"store_id,omitempty"`
	PaymentType string          `json:"payment_type" validate:"required"`
	Items       []ItemCreateDto `json:"items" validate:"required,gt=0,dive"`
}

// OrderUpdateDto represents the data transfer object for editing an order.
// The item list is replaced wholesale; client and store snapshots are kept.
type OrderUpdateDto struct {
	PaymentType *string         `json:"payment_type,omitempty"`
	Items       []ItemCreateDto `json:"items" validate:"required,gt=0,dive"`
}

// OrderListDto is one page of orders.
type OrderListDto struct {
	Orders     []OrderDto `json:"orders"`
	Pagination PageDto    `json:"pagination"`
}

type PageDto struct {
	CurrentPage int32 `json:"current_page"`
	TotalPages  int32 `json:"total_pages"`
	TotalOrders int64 `json:"total_orders"`
}

// Create assembles, persists and reconciles a new order.
// The pipeline is strictly ordered: validation happens before any remote
// call, resolution before pricing, pricing before persistence, and stock
// reconciliation only after the order row exists.
func (s *Service) Create(ctx context.Context, credential string, order OrderCreateDto) (*OrderDto, []StockDto, error) {
	items := toItemRefs(order.Items)
	if err := pricing.ValidateItems(items); err != nil {
		return nil, nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, credential, order.ClientID, order.StoreID, items)
	if err != nil {
		return nil, nil, err
	}

	priced, total, err := pricing.Price(items, resolution.Entries)
	if err != nil {
		return nil, nil, err
	}

	number, err := s.orderStore.NextNumber(ctx)
	if err != nil {
		return nil, nil, err
	}

	created, createdItems, err := s.orderStore.Create(ctx, &store.Order{
		Number:      number,
		Status:      store.StatusPending,
		PaymentType: order.PaymentType,
		Total:       total,
		Client:      resolution.Client,
		Store:       resolution.Store,
	}, toOrderItems(priced))
	if err != nil {
		return nil, nil, err
	}

	stocks, err := s.finishReconciliation(ctx, credential, created, createdItems)
	if err != nil {
		return nil, nil, err
	}

	event := events.OrderCreatedEvent{
		OrderID:     created.ID,
		OrderNumber: formatNumber(created.Number),
		ClientID:    created.Client.ID,
		Total:       created.Total,
		CreatedAt:   created.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderCreatedEvent", "error", err)
	}
	s.ordersCounter.Add(ctx, 1)

	return toDto(created, createdItems), toStockDtos(stocks), nil
}

// FindByID retrieves an order by its ID and returns it as an OrderDto.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.orderStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(order, items), nil
}

// Update replaces the order's item list and re-runs resolution, pricing and
// stock reconciliation for the new list. The client and store snapshots are
// not re-validated on edit.
func (s *Service) Update(ctx context.Context, credential string, id uuid.UUID, order OrderUpdateDto) (*OrderDto, []StockDto, error) {
	// Check existence first: a missing order must fail before any remote call.
	if _, _, err := s.orderStore.FindByID(ctx, id); err != nil {
		return nil, nil, err
	}

	items := toItemRefs(order.Items)
	if err := pricing.ValidateItems(items); err != nil {
		return nil, nil, err
	}

	entries, err := s.resolver.ResolveItems(ctx, credential, items)
	if err != nil {
		return nil, nil, err
	}

	priced, total, err := pricing.Price(items, entries)
	if err != nil {
		return nil, nil, err
	}

	updated, updatedItems, err := s.orderStore.ReplaceItems(ctx, id, order.PaymentType, total, toOrderItems(priced))
	if err != nil {
		return nil, nil, err
	}

	stocks, err := s.finishReconciliation(ctx, credential, updated, updatedItems)
	if err != nil {
		return nil, nil, err
	}
	return toDto(updated, updatedItems), toStockDtos(stocks), nil
}

// Delete removes an order and returns the removed aggregate as an OrderDto.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.orderStore.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(order, items), nil
}

// List returns one page of orders plus pagination totals. Items are not
// loaded for listings.
func (s *Service) List(ctx context.Context, page, limit int32) (*OrderListDto, error) {
	offset := (page - 1) * limit
	orders, err := s.orderStore.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.orderStore.Count(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]OrderDto, len(orders))
	for i, order := range orders {
		dtos[i] = *toDto(&order, nil)
	}
	totalPages := int32((total + int64(limit) - 1) / int64(limit))
	return &OrderListDto{
		Orders: dtos,
		Pagination: PageDto{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalOrders: total,
		},
	}, nil
}

// FindByClient returns all orders placed by the given client.
func (s *Service) FindByClient(ctx context.Context, clientID uuid.UUID) ([]OrderDto, error) {
	orders, err := s.orderStore.FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	dtos := make([]OrderDto, len(orders))
	for i, order := range orders {
		dtos[i] = *toDto(&order, nil)
	}
	return dtos, nil
}

// Count returns the total number of orders.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.orderStore.Count(ctx)
}

// finishReconciliation runs the stock fan-out for a persisted order and
// records the outcome on the order row. A reconciliation failure leaves the
// order persisted: already-applied stock decrements are not compensated,
// the failure is recorded for follow-up instead.
func (s *Service) finishReconciliation(ctx context.Context, credential string, order *store.Order, items []store.OrderItem) ([]reconcile.StockResult, error) {
	stocks, recErr := s.reconciler.Reconcile(ctx, credential, items)
	if recErr != nil {
		message := recErr.Error()
		if err := s.orderStore.UpdateStatus(ctx, order.ID, store.StatusReconcileFailed, &message); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record reconciliation failure", "ID", order.ID, "error", err)
		}
		return nil, fmt.Errorf("order %s: %v: %w", order.ID, recErr, ordererrors.ErrStockReconcile)
	}

	if err := s.orderStore.UpdateStatus(ctx, order.ID, store.StatusConfirmed, nil); err != nil {
		return nil, err
	}
	order.Status = store.StatusConfirmed
	return stocks, nil
}

func formatNumber(n int64) string {
	return strconv.FormatInt(n, 10)
}

func toItemRefs(items []ItemCreateDto) []catalog.ItemRef {
	refs := make([]catalog.ItemRef, len(items))
	for i, item := range items {
		refs[i] = catalog.ItemRef{ProductID: item.ProductID, ServiceID: item.ServiceID, Quantity: item.Quantity}
	}
	return refs
}

func toOrderItems(priced []pricing.PricedItem) []store.OrderItem {
	items := make([]store.OrderItem, len(priced))
	for i, line := range priced {
		items[i] = store.OrderItem{
			Kind:        line.Kind,
			ReferenceID: line.ReferenceID,
			Name:        line.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal,
		}
	}
	return items
}

func toStockDtos(results []reconcile.StockResult) []StockDto {
	dtos := make([]StockDto, len(results))
	for i, result := range results {
		dtos[i] = StockDto{
			Kind:        string(result.Kind),
			ReferenceID: result.ReferenceID,
			Quantity:    result.Quantity,
			Remaining:   result.Remaining,
		}
	}
	return dtos
}

// toDto converts a store.Order to an OrderDto.
func toDto(order *store.Order, items []store.OrderItem) *OrderDto {
	if order == nil {
		return nil
	}

	var itemsDto []OrderItemDto
	if items != nil {
		itemsDto = make([]OrderItemDto, 0, len(items))
		for _, item := range items {
			itemsDto = append(itemsDto, OrderItemDto{
				ID:          item.ID,
				Kind:        string(item.Kind),
				ReferenceID: item.ReferenceID,
				Name:        item.Name,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
				Subtotal:    item.Subtotal,
			})
		}
	}

	dto := &OrderDto{
		ID:             order.ID,
		Number:         formatNumber(order.Number),
		Status:         order.Status,
		PaymentType:    order.PaymentType,
		Total:          order.Total,
		Client:         ClientDto(order.Client),
		ReconcileError: order.ReconcileError,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
		Items:          itemsDto,
	}
	if order.Store != nil {
		storeDto := StoreDto(*order.Store)
		dto.Store = &storeDto
	}
	return dto
}
