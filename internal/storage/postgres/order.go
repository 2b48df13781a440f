package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/velles/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, order_number, customer_id, total_price, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	addOrderProductSQL = `INSERT INTO order_products (order_id, product_id) VALUES ($1, $2)`

	orderColumns = `id, order_number, customer_id, total_price, method, status, created_at`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	orderNumberExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`

	listOrderNumbersSQL = `SELECT order_number FROM orders`

	updateOrderSQL = `UPDATE orders SET total_price = $2, status = $3 WHERE id = $1`

	deleteOrderProductsSQL = `DELETE FROM order_products WHERE order_id = $1`

	deleteOrderByNumberSQL = `DELETE FROM orders WHERE order_number = $1`

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC`

	// Seller scope: orders containing at least one product from a shop owned
	// by the seller. EXISTS keeps each order to a single row without a
	// DISTINCT over the join product.
	listOrdersBySellerSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_products op
			JOIN products p ON p.id = op.product_id
			JOIN shops s ON s.id = p.shop_id
			WHERE op.order_id = o.id AND s.owner_id = $1
		)
		ORDER BY o.created_at DESC`

	getOrderProductsSQL = `SELECT order_id, product_id FROM order_products
		WHERE order_id = ANY($1) ORDER BY product_id`

	deleteOrphanOrdersSQL = `DELETE FROM orders o
		WHERE o.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM deliveries d WHERE d.order_id = o.id)
		  AND NOT EXISTS (SELECT 1 FROM pickups p WHERE p.order_id = o.id)
		RETURNING o.order_number`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order row and its product associations in one
// transaction. A unique violation on the order number maps to
// order.ErrNumberTaken so the caller can regenerate and retry.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.OrderNumber, o.CustomerID, o.TotalPrice, string(o.Method), string(o.Status), o.CreatedAt,
		)
		if err != nil {
			return err
		}
		for _, pid := range o.ProductIDs {
			if _, err := tx.Exec(ctx, addOrderProductSQL, o.ID, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return order.ErrNumberTaken
		}
		return errors.Wrapf(err, "creating order %q", o.OrderNumber)
	}
	return nil
}

// GetByNumber returns the order with the given order number, including its
// product associations.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, orderNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", orderNumber)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", orderNumber)
	}

	if err := r.loadProducts(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// NumberExists reports whether any order holds the given order number.
func (r *OrderRepository) NumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderNumberExistsSQL, orderNumber).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "checking order number")
	}
	return exists, nil
}

// ListNumbers returns every issued order number.
func (r *OrderRepository) ListNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listOrderNumbersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing order numbers")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var n string
		err := row.Scan(&n)
		return n, err
	})
}

// Update persists the mutable order fields: total price and status.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL, o.ID, o.TotalPrice, string(o.Status))
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.OrderNumber)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ReplaceProducts swaps the order's product association set in one
// transaction.
func (r *OrderRepository) ReplaceProducts(ctx context.Context, orderID string, productIDs []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteOrderProductsSQL, orderID); err != nil {
			return err
		}
		for _, pid := range productIDs {
			if _, err := tx.Exec(ctx, addOrderProductSQL, orderID, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "replacing products of order %s", orderID)
	}
	return nil
}

// Delete removes the order; deliveries and pickups cascade.
func (r *OrderRepository) Delete(ctx context.Context, orderNumber string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderByNumberSQL, orderNumber)
	if err != nil {
		return errors.Wrapf(err, "deleting order %q", orderNumber)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// List returns the orders visible within the scope, newest first.
func (r *OrderRepository) List(ctx context.Context, scope order.Scope) ([]order.Order, error) {
	query, arg, err := scopedQuery(scope, listOrdersByCustomerSQL, listOrdersBySellerSQL)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}

	refs := make([]*order.Order, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := r.loadProducts(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOrphans removes orders older than the cutoff that never got a
// fulfillment row (a crash between the two checkout steps leaves such rows).
func (r *OrderRepository) DeleteOrphans(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, deleteOrphanOrdersSQL, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "deleting orphan orders")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var n string
		err := row.Scan(&n)
		return n, err
	})
}

// loadProducts fills ProductIDs for the given orders with one batch query.
func (r *OrderRepository) loadProducts(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, getOrderProductsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "loading order products")
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, productID string
		if err := rows.Scan(&orderID, &productID); err != nil {
			return errors.Wrap(err, "scanning order product")
		}
		if o, ok := byID[orderID]; ok {
			o.ProductIDs = append(o.ProductIDs, productID)
		}
	}
	return rows.Err()
}

// scopedQuery selects the query variant and argument for a scope. An empty
// scope is a programming error, not an admin backdoor.
func scopedQuery(scope order.Scope, customerSQL, sellerSQL string) (string, string, error) {
	switch {
	case scope.CustomerID != "":
		return customerSQL, scope.CustomerID, nil
	case scope.SellerID != "":
		return sellerSQL, scope.SellerID, nil
	default:
		return "", "", errors.New("empty query scope")
	}
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		total          decimal.Decimal
		method, status string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &total, &method, &status, &o.CreatedAt)
	o.TotalPrice = total
	o.Method = order.Method(method)
	o.Status = order.Status(status)
	return o, err
}
