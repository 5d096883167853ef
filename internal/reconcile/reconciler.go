// Package reconcile propagates the stock effects of a persisted order back
// to the owning services.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/orders/internal/catalog"
	"github.com/abgdnv/orders/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StockResult is the outcome of one item's reconciliation call.
type StockResult struct {
	Kind        store.ItemKind
	ReferenceID uuid.UUID
	Quantity    int32
	Remaining   *int32
}

// Reconciler issues the post-persistence side-effect calls: one stock
// decrement per product item and one availability re-confirmation per
// service item. Calls for one order run concurrently and are awaited
// jointly; a single failure fails the whole reconciliation. Effects already
// applied by sibling calls are not rolled back; the caller records the
// failure on the order instead.
type Reconciler struct {
	catalog catalog.Catalog
	logger  *slog.Logger
}

func NewReconciler(c catalog.Catalog, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		catalog: c,
		logger:  logger.With("component", "reconcile"),
	}
}

// Reconcile fans out one call per item and collects the per-item results.
func (r *Reconciler) Reconcile(ctx context.Context, credential string, items []store.OrderItem) ([]StockResult, error) {
	results := make([]StockResult, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			switch item.Kind {
			case store.KindProduct:
				remaining, err := r.catalog.DecrementStock(gCtx, credential, item.ReferenceID, item.Quantity)
				if err != nil {
					return fmt.Errorf("decrement stock: %w", err)
				}
				results[i] = StockResult{Kind: store.KindProduct, ReferenceID: item.ReferenceID, Quantity: item.Quantity, Remaining: &remaining}
			case store.KindService:
				// Services are not stock-tracked; re-confirm availability instead.
				if _, err := r.catalog.ResolveService(gCtx, credential, item.ReferenceID); err != nil {
					return fmt.Errorf("confirm service: %w", err)
				}
				results[i] = StockResult{Kind: store.KindService, ReferenceID: item.ReferenceID}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.ErrorContext(ctx, "Stock reconciliation failed", "error", err)
		return nil, err
	}
	return results, nil
}
