package catalog

import (
	"context"

	"github.com/abgdnv/orders/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ItemRef is a requested line item before resolution. Exactly one of
// ProductID and ServiceID is expected to be set.
type ItemRef struct {
	ProductID *uuid.UUID
	ServiceID *uuid.UUID
	Quantity  int32
}

// Kind reports which reference the item carries. Items that carry neither
// or both are rejected upfront by the pricer, so Kind is only called on
// well-formed refs.
func (r ItemRef) Kind() store.ItemKind {
	if r.ProductID != nil {
		return store.KindProduct
	}
	return store.KindService
}

// Entry is a resolved catalog record for one requested item.
type Entry struct {
	Kind  store.ItemKind
	ID    uuid.UUID
	Name  string
	Price int64
	Stock int32
}

// Resolution is everything resolved for one order-creation request.
type Resolution struct {
	Client  store.ClientSnapshot
	Store   *store.StoreSnapshot
	Entries []Entry
}

// Resolver fans out the catalog lookups needed by one request. All lookups
// for a request run concurrently and are joined before the pipeline moves
// on; the first failure cancels the remaining in-flight lookups.
type Resolver struct {
	catalog Catalog
}

func NewResolver(c Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve fetches the client, the optional store and every item's catalog
// record in one concurrent round trip.
func (r *Resolver) Resolve(ctx context.Context, credential string, clientID uuid.UUID, storeID *uuid.UUID, items []ItemRef) (*Resolution, error) {
	resolution := &Resolution{Entries: make([]Entry, len(items))}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client, err := r.catalog.ResolveClient(gCtx, credential, clientID)
		if err != nil {
			return err
		}
		resolution.Client = *client
		return nil
	})
	if storeID != nil {
		id := *storeID
		g.Go(func() error {
			snapshot, err := r.catalog.ResolveStore(gCtx, credential, id)
			if err != nil {
				return err
			}
			resolution.Store = snapshot
			return nil
		})
	}
	r.resolveEach(g, gCtx, credential, items, resolution.Entries)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolution, nil
}

// ResolveItems fetches the catalog record of every item concurrently.
// Used by edits, which never re-resolve the client or store snapshots.
func (r *Resolver) ResolveItems(ctx context.Context, credential string, items []ItemRef) ([]Entry, error) {
	entries := make([]Entry, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	r.resolveEach(g, gCtx, credential, items, entries)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// resolveEach schedules one lookup per item. Each goroutine writes to its
// own slot, so the entries slice needs no locking.
func (r *Resolver) resolveEach(g *errgroup.Group, ctx context.Context, credential string, items []ItemRef, entries []Entry) {
	for i, item := range items {
		g.Go(func() error {
			switch item.Kind() {
			case store.KindProduct:
				product, err := r.catalog.ResolveProduct(ctx, credential, *item.ProductID)
				if err != nil {
					return err
				}
				entries[i] = Entry{Kind: store.KindProduct, ID: product.ID, Name: product.Name, Price: product.Price, Stock: product.Stock}
			case store.KindService:
				service, err := r.catalog.ResolveService(ctx, credential, *item.ServiceID)
				if err != nil {
					return err
				}
				entries[i] = Entry{Kind: store.KindService, ID: service.ID, Name: service.Name, Price: service.Price}
			}
			return nil
		})
	}
}
