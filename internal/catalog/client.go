// Package catalog talks to the sibling services that own products, services,
// clients and stores. Every outbound call forwards the caller's bearer
// credential verbatim and is a single attempt: there is no retry layer.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/store"
	"github.com/abgdnv/orders/pkg/config"
	"github.com/google/uuid"
)

// ProductEntry is a product record resolved from the products service.
type ProductEntry struct {
	ID    uuid.UUID
	Name  string
	Price int64
	Stock int32
}

// ServiceEntry is a service record resolved from the services catalog.
type ServiceEntry struct {
	ID    uuid.UUID
	Name  string
	Price int64
}

// Catalog is the outbound contract used by the resolver and the reconciler.
type Catalog interface {
	// ResolveProduct fetches a product by ID.
	// Returns ErrProductNotFound if the products service has no such record.
	ResolveProduct(ctx context.Context, credential string, id uuid.UUID) (*ProductEntry, error)

	// ResolveService fetches a service by ID.
	// Returns ErrServiceNotFound if the services catalog has no such record.
	ResolveService(ctx context.Context, credential string, id uuid.UUID) (*ServiceEntry, error)

	// ResolveClient fetches the client snapshot from the users service.
	ResolveClient(ctx context.Context, credential string, id uuid.UUID) (*store.ClientSnapshot, error)

	// ResolveStore fetches the store snapshot from the stores service.
	ResolveStore(ctx context.Context, credential string, id uuid.UUID) (*store.StoreSnapshot, error)

	// DecrementStock consumes quantity units of the product's stock and
	// returns the remaining stock reported by the products service.
	DecrementStock(ctx context.Context, credential string, id uuid.UUID, quantity int32) (int32, error)
}

// Endpoints carries the base URL and timeout of every collaborator.
type Endpoints struct {
	Products config.HTTPClientConfig
	Services config.HTTPClientConfig
	Users    config.HTTPClientConfig
	Stores   config.HTTPClientConfig
}

// Client implements Catalog over HTTP.
type Client struct {
	products target
	services target
	users    target
	stores   target
	logger   *slog.Logger
}

type target struct {
	baseURL string
	hc      *http.Client
}

func newTarget(cfg config.HTTPClientConfig) target {
	return target{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		hc:      &http.Client{Timeout: cfg.Timeout},
	}
}

// NewClient creates a catalog client for the configured collaborators.
func NewClient(endpoints Endpoints, logger *slog.Logger) *Client {
	return &Client{
		products: newTarget(endpoints.Products),
		services: newTarget(endpoints.Services),
		users:    newTarget(endpoints.Users),
		stores:   newTarget(endpoints.Stores),
		logger:   logger.With("component", "catalog"),
	}
}

func (c *Client) ResolveProduct(ctx context.Context, credential string, id uuid.UUID) (*ProductEntry, error) {
	var payload struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Price *int64    `json:"price"`
		Stock *int32    `json:"stock_quantity"`
	}
	url := fmt.Sprintf("%s/api/v1/products/%s", c.products.baseURL, id)
	status, err := c.do(ctx, c.products.hc, http.MethodGet, url, credential, nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("product %s: %w", id, ordererrors.ErrProductNotFound)
	case status != http.StatusOK:
		return nil, fmt.Errorf("product %s: status %d: %w", id, status, ordererrors.ErrUpstream)
	}
	// A 200 without a price or stock figure is a broken payload, never a free product.
	if payload.Price == nil || payload.Stock == nil {
		return nil, fmt.Errorf("product %s: malformed payload: %w", id, ordererrors.ErrUpstream)
	}
	return &ProductEntry{ID: id, Name: payload.Name, Price: *payload.Price, Stock: *payload.Stock}, nil
}

func (c *Client) ResolveService(ctx context.Context, credential string, id uuid.UUID) (*ServiceEntry, error) {
	var payload struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Price *int64    `json:"price"`
	}
	url := fmt.Sprintf("%s/api/v1/services/%s", c.services.baseURL, id)
	status, err := c.do(ctx, c.services.hc, http.MethodGet, url, credential, nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("service %s: %w", id, ordererrors.ErrServiceNotFound)
	case status != http.StatusOK:
		return nil, fmt.Errorf("service %s: status %d: %w", id, status, ordererrors.ErrUpstream)
	}
	if payload.Price == nil {
		return nil, fmt.Errorf("service %s: malformed payload: %w", id, ordererrors.ErrUpstream)
	}
	return &ServiceEntry{ID: id, Name: payload.Name, Price: *payload.Price}, nil
}

func (c *Client) ResolveClient(ctx context.Context, credential string, id uuid.UUID) (*store.ClientSnapshot, error) {
	var payload struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Phone string    `json:"phone"`
	}
	url := fmt.Sprintf("%s/api/v1/users/%s", c.users.baseURL, id)
	status, err := c.do(ctx, c.users.hc, http.MethodGet, url, credential, nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("client %s: %w", id, ordererrors.ErrClientNotFound)
	case status != http.StatusOK:
		return nil, fmt.Errorf("client %s: status %d: %w", id, status, ordererrors.ErrUpstream)
	}
	return &store.ClientSnapshot{ID: id, Name: payload.Name, Email: payload.Email, Phone: payload.Phone}, nil
}

func (c *Client) ResolveStore(ctx context.Context, credential string, id uuid.UUID) (*store.StoreSnapshot, error) {
	var payload struct {
		ID      uuid.UUID `json:"id"`
		Name    string    `json:"name"`
		Address string    `json:"address"`
	}
	url := fmt.Sprintf("%s/api/v1/stores/%s", c.stores.baseURL, id)
	status, err := c.do(ctx, c.stores.hc, http.MethodGet, url, credential, nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("store %s: %w", id, ordererrors.ErrStoreNotFound)
	case status != http.StatusOK:
		return nil, fmt.Errorf("store %s: status %d: %w", id, status, ordererrors.ErrUpstream)
	}
	return &store.StoreSnapshot{ID: id, Name: payload.Name, Address: payload.Address}, nil
}

func (c *Client) DecrementStock(ctx context.Context, credential string, id uuid.UUID, quantity int32) (int32, error) {
	request := struct {
		Quantity int32 `json:"quantity"`
	}{Quantity: quantity}
	var payload struct {
		Stock *int32 `json:"stock_quantity"`
	}
	url := fmt.Sprintf("%s/api/v1/products/%s/stock/decrement", c.products.baseURL, id)
	status, err := c.do(ctx, c.products.hc, http.MethodPost, url, credential, request, &payload)
	if err != nil {
		return 0, fmt.Errorf("product %s: %w", id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return 0, fmt.Errorf("product %s: %w", id, ordererrors.ErrProductNotFound)
	case status != http.StatusOK:
		return 0, fmt.Errorf("product %s: stock decrement status %d: %w", id, status, ordererrors.ErrUpstream)
	}
	if payload.Stock == nil {
		return 0, fmt.Errorf("product %s: malformed payload: %w", id, ordererrors.ErrUpstream)
	}
	return *payload.Stock, nil
}

// do issues one HTTP request with the forwarded credential and decodes a
// JSON body on 2xx. The response status is always returned so callers can
// map 404s to their typed sentinels.
func (c *Client) do(ctx context.Context, hc *http.Client, method, url, credential string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", credential)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ordererrors.ErrUpstream)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", ordererrors.ErrUpstream)
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
