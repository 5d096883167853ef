package store

import (
	"context"
	"errors"

	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, number, status, payment_type, total,
	client_id, client_name, client_email, client_phone,
	store_id, store_name, store_address, reconcile_error, created_at`

const (
	nextNumberQuery = `INSERT INTO order_numbers (id, value) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET value = order_numbers.value + 1
		RETURNING value`

	insertOrderQuery = `INSERT INTO orders (number, status, payment_type, total,
			client_id, client_name, client_email, client_phone,
			store_id, store_name, store_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + orderColumns

	insertItemQuery = `INSERT INTO order_items (order_id, position, kind, reference_id, name, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	selectOrderQuery = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	selectItemsQuery = `SELECT id, order_id, kind, reference_id, name, unit_price, quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY position`

	replaceOrderQuery = `UPDATE orders
		SET payment_type = COALESCE($2, payment_type), total = $3,
			status = $4, reconcile_error = NULL
		WHERE id = $1
		RETURNING ` + orderColumns

	updateStatusQuery = `UPDATE orders SET status = $2, reconcile_error = $3 WHERE id = $1`

	deleteItemsQuery = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderQuery = `DELETE FROM orders WHERE id = $1`

	countOrdersQuery = `SELECT COUNT(*) FROM orders`

	listOrdersQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY number LIMIT $1 OFFSET $2`

	clientOrdersQuery = `SELECT ` + orderColumns + ` FROM orders WHERE client_id = $1 ORDER BY number`
)

// PgStore implements OrderStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of OrderStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) NextNumber(ctx context.Context) (int64, error) {
	var number int64
	if err := p.db.QueryRow(ctx, nextNumberQuery).Scan(&number); err != nil {
		return 0, ordererrors.ErrOrderNumber
	}
	return number, nil
}

func (p *PgStore) Create(ctx context.Context, order *Order, items []OrderItem) (*Order, []OrderItem, error) {
	var created *Order
	var createdItems []OrderItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var storeID *uuid.UUID
		var storeName, storeAddress *string
		if order.Store != nil {
			storeID = &order.Store.ID
			storeName = &order.Store.Name
			storeAddress = &order.Store.Address
		}
		row := tx.QueryRow(ctx, insertOrderQuery,
			order.Number, order.Status, order.PaymentType, order.Total,
			order.Client.ID, order.Client.Name, order.Client.Email, order.Client.Phone,
			storeID, storeName, storeAddress,
		)
		o, err := scanOrder(row)
		if err != nil {
			return ordererrors.ErrCreateOrder
		}

		stored := make([]OrderItem, 0, len(items))
		for i, item := range items {
			item.OrderID = o.ID
			err := tx.QueryRow(ctx, insertItemQuery,
				item.OrderID, i, item.Kind, item.ReferenceID, item.Name,
				item.UnitPrice, item.Quantity, item.Subtotal,
			).Scan(&item.ID)
			if err != nil {
				return ordererrors.ErrCreateOrderItem
			}
			stored = append(stored, item)
		}
		created = o
		createdItems = stored
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}
	return created, createdItems, nil
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	var order *Order
	var items []OrderItem

	// Use transaction to ensure atomicity and consistency
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, selectOrderQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ordererrors.ErrOrderNotFound
			}
			return ordererrors.ErrFailedToFindOrder
		}
		i, err := queryItems(ctx, tx, id)
		if err != nil {
			return ordererrors.ErrFailedToFindOrder
		}
		order = o
		items = i
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}
	return order, items, nil
}

func (p *PgStore) ReplaceItems(ctx context.Context, id uuid.UUID, paymentType *string, total int64, items []OrderItem) (*Order, []OrderItem, error) {
	var updated *Order
	var updatedItems []OrderItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, replaceOrderQuery, id, paymentType, total, StatusPending))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ordererrors.ErrOrderNotFound
			}
			return ordererrors.ErrUpdateOrder
		}
		if _, err := tx.Exec(ctx, deleteItemsQuery, id); err != nil {
			return ordererrors.ErrUpdateOrder
		}
		stored := make([]OrderItem, 0, len(items))
		for i, item := range items {
			item.OrderID = id
			err := tx.QueryRow(ctx, insertItemQuery,
				item.OrderID, i, item.Kind, item.ReferenceID, item.Name,
				item.UnitPrice, item.Quantity, item.Subtotal,
			).Scan(&item.ID)
			if err != nil {
				return ordererrors.ErrCreateOrderItem
			}
			stored = append(stored, item)
		}
		updated = o
		updatedItems = stored
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}
	return updated, updatedItems, nil
}

func (p *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reconcileError *string) error {
	tag, err := p.db.Exec(ctx, updateStatusQuery, id, status, reconcileError)
	if err != nil {
		return ordererrors.ErrUpdateOrder
	}
	if tag.RowsAffected() == 0 {
		return ordererrors.ErrOrderNotFound
	}
	return nil
}

func (p *PgStore) Delete(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	var removed *Order
	var removedItems []OrderItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, selectOrderQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ordererrors.ErrOrderNotFound
			}
			return ordererrors.ErrDeleteOrder
		}
		i, err := queryItems(ctx, tx, id)
		if err != nil {
			return ordererrors.ErrDeleteOrder
		}
		// order_items rows go away via ON DELETE CASCADE
		if _, err := tx.Exec(ctx, deleteOrderQuery, id); err != nil {
			return ordererrors.ErrDeleteOrder
		}
		removed = o
		removedItems = i
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}
	return removed, removedItems, nil
}

func (p *PgStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, countOrdersQuery).Scan(&count); err != nil {
		return 0, ordererrors.ErrFailedToCountOrders
	}
	return count, nil
}

func (p *PgStore) List(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := p.db.Query(ctx, listOrdersQuery, limit, offset)
	if err != nil {
		return nil, ordererrors.ErrFailedToListOrders
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, ordererrors.ErrFailedToListOrders
	}
	return orders, nil
}

func (p *PgStore) FindByClient(ctx context.Context, clientID uuid.UUID) ([]Order, error) {
	rows, err := p.db.Query(ctx, clientOrdersQuery, clientID)
	if err != nil {
		return nil, ordererrors.ErrFailedToFindClientOrders
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, ordererrors.ErrFailedToFindClientOrders
	}
	return orders, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return ordererrors.ErrTransactionBegin
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return ordererrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ordererrors.ErrTransactionCommit
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var storeID *uuid.UUID
	var storeName, storeAddress *string
	err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.PaymentType, &o.Total,
		&o.Client.ID, &o.Client.Name, &o.Client.Email, &o.Client.Phone,
		&storeID, &storeName, &storeAddress, &o.ReconcileError, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if storeID != nil {
		snapshot := StoreSnapshot{ID: *storeID}
		if storeName != nil {
			snapshot.Name = *storeName
		}
		if storeAddress != nil {
			snapshot.Address = *storeAddress
		}
		o.Store = &snapshot
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func queryItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := tx.Query(ctx, selectItemsQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.Kind, &item.ReferenceID,
			&item.Name, &item.UnitPrice, &item.Quantity, &item.Subtotal)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
