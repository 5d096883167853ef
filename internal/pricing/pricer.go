// Package pricing validates requested line items against their resolved
// catalog records and computes the order total. The total is always computed
// server-side; amounts sent by the caller are never trusted.
package pricing

import (
	"fmt"

	"github.com/abgdnv/orders/internal/catalog"
	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/store"
	"github.com/google/uuid"
)

// PricedItem is one validated line with its computed subtotal.
type PricedItem struct {
	Kind        store.ItemKind
	ReferenceID uuid.UUID
	Name        string
	UnitPrice   int64
	Quantity    int32
	Subtotal    int64
}

// ValidateItems checks the structural validity of the requested items before
// any remote call is made: each item references exactly one of product or
// service, and product items carry a positive quantity. Validation stops at
// the first failing item.
func ValidateItems(items []catalog.ItemRef) error {
	if len(items) == 0 {
		return ordererrors.ErrEmptyOrder
	}
	for i, item := range items {
		if (item.ProductID == nil) == (item.ServiceID == nil) {
			return fmt.Errorf("item %d: %w", i, ordererrors.ErrInvalidItemKind)
		}
		if item.ProductID != nil && item.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i, ordererrors.ErrInvalidQuantity)
		}
	}
	return nil
}

// Price computes per-item subtotals and the order total from the resolved
// catalog entries. Product subtotals are price × quantity after the stock
// check; service subtotals are the service price (services are
// quantity-less). The first failing item aborts pricing.
func Price(items []catalog.ItemRef, entries []catalog.Entry) ([]PricedItem, int64, error) {
	if len(items) != len(entries) {
		return nil, 0, fmt.Errorf("resolved %d entries for %d items: %w", len(entries), len(items), ordererrors.ErrUpstream)
	}

	priced := make([]PricedItem, 0, len(items))
	var total int64
	for i, entry := range entries {
		if entry.Price < 0 {
			return nil, 0, fmt.Errorf("%s %s: price %d: %w", entry.Kind, entry.ID, entry.Price, ordererrors.ErrInvalidPrice)
		}

		line := PricedItem{Kind: entry.Kind, ReferenceID: entry.ID, Name: entry.Name, UnitPrice: entry.Price}
		switch entry.Kind {
		case store.KindProduct:
			quantity := items[i].Quantity
			if quantity <= 0 {
				return nil, 0, fmt.Errorf("item %d: %w", i, ordererrors.ErrInvalidQuantity)
			}
			if entry.Stock < quantity {
				return nil, 0, fmt.Errorf("product %s: available %d, requested %d: %w",
					entry.ID, entry.Stock, quantity, ordererrors.ErrInsufficientStock)
			}
			line.Quantity = quantity
			line.Subtotal = entry.Price * int64(quantity)
		case store.KindService:
			line.Subtotal = entry.Price
		}

		priced = append(priced, line)
		total += line.Subtotal
	}
	return priced, total, nil
}
