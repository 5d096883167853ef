package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/abgdnv/orders/internal/catalog"
	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalog records stock decrements and service confirmations.
type mockCatalog struct {
	mu         sync.Mutex
	decrements map[uuid.UUID]int32
	confirmed  map[uuid.UUID]int
	stock      map[uuid.UUID]int32

	decrementErr error
	serviceErr   error
}

func (m *mockCatalog) ResolveProduct(_ context.Context, _ string, _ uuid.UUID) (*catalog.ProductEntry, error) {
	return nil, ordererrors.ErrProductNotFound
}

func (m *mockCatalog) ResolveService(_ context.Context, _ string, id uuid.UUID) (*catalog.ServiceEntry, error) {
	if m.serviceErr != nil {
		return nil, m.serviceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confirmed == nil {
		m.confirmed = make(map[uuid.UUID]int)
	}
	m.confirmed[id]++
	return &catalog.ServiceEntry{ID: id, Name: "installation", Price: 30}, nil
}

func (m *mockCatalog) ResolveClient(_ context.Context, _ string, _ uuid.UUID) (*store.ClientSnapshot, error) {
	return nil, ordererrors.ErrClientNotFound
}

func (m *mockCatalog) ResolveStore(_ context.Context, _ string, _ uuid.UUID) (*store.StoreSnapshot, error) {
	return nil, ordererrors.ErrStoreNotFound
}

func (m *mockCatalog) DecrementStock(_ context.Context, _ string, id uuid.UUID, quantity int32) (int32, error) {
	if m.decrementErr != nil {
		return 0, m.decrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decrements == nil {
		m.decrements = make(map[uuid.UUID]int32)
	}
	m.decrements[id] += quantity
	return m.stock[id] - quantity, nil
}

func newTestReconciler(c catalog.Catalog) *Reconciler {
	return NewReconciler(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Reconciler_Reconcile(t *testing.T) {
	productID := uuid.New()
	serviceID := uuid.New()

	mock := &mockCatalog{stock: map[uuid.UUID]int32{productID: 10}}
	reconciler := newTestReconciler(mock)

	results, err := reconciler.Reconcile(context.Background(), "Bearer t", []store.OrderItem{
		{Kind: store.KindProduct, ReferenceID: productID, Quantity: 2},
		{Kind: store.KindService, ReferenceID: serviceID},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, store.KindProduct, results[0].Kind)
	assert.Equal(t, int32(2), results[0].Quantity)
	require.NotNil(t, results[0].Remaining)
	assert.Equal(t, int32(8), *results[0].Remaining)

	assert.Equal(t, store.KindService, results[1].Kind)
	assert.Nil(t, results[1].Remaining)

	assert.Equal(t, int32(2), mock.decrements[productID])
	assert.Equal(t, 1, mock.confirmed[serviceID])
}

func Test_Reconciler_Reconcile_DecrementFails(t *testing.T) {
	productID := uuid.New()

	mock := &mockCatalog{decrementErr: ordererrors.ErrUpstream}
	reconciler := newTestReconciler(mock)

	results, err := reconciler.Reconcile(context.Background(), "Bearer t", []store.OrderItem{
		{Kind: store.KindProduct, ReferenceID: productID, Quantity: 1},
	})
	assert.ErrorIs(t, err, ordererrors.ErrUpstream)
	assert.Nil(t, results)
}

func Test_Reconciler_Reconcile_ServiceConfirmationFails(t *testing.T) {
	productID := uuid.New()
	serviceID := uuid.New()

	mock := &mockCatalog{
		stock:      map[uuid.UUID]int32{productID: 10},
		serviceErr: ordererrors.ErrServiceNotFound,
	}
	reconciler := newTestReconciler(mock)

	// The sibling decrement may still have been applied; reconciliation
	// reports the failure without undoing it.
	results, err := reconciler.Reconcile(context.Background(), "Bearer t", []store.OrderItem{
		{Kind: store.KindProduct, ReferenceID: productID, Quantity: 3},
		{Kind: store.KindService, ReferenceID: serviceID},
	})
	assert.ErrorIs(t, err, ordererrors.ErrServiceNotFound)
	assert.Nil(t, results)
}

func Test_Reconciler_Reconcile_NoItems(t *testing.T) {
	reconciler := newTestReconciler(&mockCatalog{})

	results, err := reconciler.Reconcile(context.Background(), "Bearer t", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
