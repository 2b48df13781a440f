package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velles/storefront/internal/domain/order"
)

const (
	createDeliverySQL = `INSERT INTO deliveries (order_id, address, completed)
		VALUES ($1, $2, $3) RETURNING id, created_at`

	getDeliverySQL = `SELECT id, order_id, address, completed, created_at
		FROM deliveries WHERE id = $1`

	updateDeliverySQL = `UPDATE deliveries SET address = $2, completed = $3 WHERE id = $1`

	deleteDeliverySQL = `DELETE FROM deliveries WHERE id = $1`

	listDeliveriesByCustomerSQL = `SELECT d.id, d.order_id, d.address, d.completed, d.created_at
		FROM deliveries d
		JOIN orders o ON o.id = d.order_id
		WHERE o.customer_id = $1
		ORDER BY d.created_at DESC`

	listDeliveriesBySellerSQL = `SELECT d.id, d.order_id, d.address, d.completed, d.created_at
		FROM deliveries d
		JOIN orders o ON o.id = d.order_id
		WHERE EXISTS (
			SELECT 1 FROM order_products op
			JOIN products p ON p.id = op.product_id
			JOIN shops s ON s.id = p.shop_id
			WHERE op.order_id = o.id AND s.owner_id = $1
		)
		ORDER BY d.created_at DESC`

	createPickupSQL = `INSERT INTO pickups (order_id, pickup_date, pickup_time, completed)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	getPickupSQL = `SELECT id, order_id, pickup_date, pickup_time::text, completed, created_at
		FROM pickups WHERE id = $1`

	updatePickupSQL = `UPDATE pickups SET pickup_date = $2, pickup_time = $3, completed = $4 WHERE id = $1`

	deletePickupSQL = `DELETE FROM pickups WHERE id = $1`

	listPickupsByCustomerSQL = `SELECT pk.id, pk.order_id, pk.pickup_date, pk.pickup_time::text, pk.completed, pk.created_at
		FROM pickups pk
		JOIN orders o ON o.id = pk.order_id
		WHERE o.customer_id = $1
		ORDER BY pk.created_at DESC`

	listPickupsBySellerSQL = `SELECT pk.id, pk.order_id, pk.pickup_date, pk.pickup_time::text, pk.completed, pk.created_at
		FROM pickups pk
		JOIN orders o ON o.id = pk.order_id
		WHERE EXISTS (
			SELECT 1 FROM order_products op
			JOIN products p ON p.id = op.product_id
			JOIN shops s ON s.id = p.shop_id
			WHERE op.order_id = o.id AND s.owner_id = $1
		)
		ORDER BY pk.created_at DESC`
)

// clockLayout is how TIME columns are written and read back.
const clockLayout = "15:04:05"

var _ order.FulfillmentRepository = (*FulfillmentRepository)(nil)

// FulfillmentRepository implements order.FulfillmentRepository backed by
// PostgreSQL.
type FulfillmentRepository struct {
	pool *pgxpool.Pool
}

// NewFulfillmentRepository returns a FulfillmentRepository that uses the
// given pool.
func NewFulfillmentRepository(pool *pgxpool.Pool) *FulfillmentRepository {
	return &FulfillmentRepository{pool: pool}
}

// CreateDelivery persists a delivery record for its order.
func (r *FulfillmentRepository) CreateDelivery(ctx context.Context, d *order.Delivery) error {
	err := r.pool.QueryRow(ctx, createDeliverySQL, d.OrderID, d.Address, d.Completed).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "creating delivery for order %s", d.OrderID)
	}
	return nil
}

// GetDelivery returns a delivery by its primary key.
func (r *FulfillmentRepository) GetDelivery(ctx context.Context, id int64) (*order.Delivery, error) {
	var d order.Delivery
	err := r.pool.QueryRow(ctx, getDeliverySQL, id).
		Scan(&d.ID, &d.OrderID, &d.Address, &d.Completed, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrFulfillmentNotFound
		}
		return nil, errors.Wrapf(err, "getting delivery %d", id)
	}
	return &d, nil
}

// UpdateDelivery persists the mutable delivery fields.
func (r *FulfillmentRepository) UpdateDelivery(ctx context.Context, d *order.Delivery) error {
	tag, err := r.pool.Exec(ctx, updateDeliverySQL, d.ID, d.Address, d.Completed)
	if err != nil {
		return errors.Wrapf(err, "updating delivery %d", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrFulfillmentNotFound
	}
	return nil
}

// DeleteDelivery removes a delivery by its primary key.
func (r *FulfillmentRepository) DeleteDelivery(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteDeliverySQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting delivery %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrFulfillmentNotFound
	}
	return nil
}

// ListDeliveries returns deliveries visible within the scope, newest first.
// The seller variant de-duplicates through EXISTS: each delivery appears
// once however many of the seller's products the order contains.
func (r *FulfillmentRepository) ListDeliveries(ctx context.Context, scope order.Scope) ([]order.Delivery, error) {
	query, arg, err := scopedQuery(scope, listDeliveriesByCustomerSQL, listDeliveriesBySellerSQL)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "listing deliveries")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Delivery, error) {
		var d order.Delivery
		err := row.Scan(&d.ID, &d.OrderID, &d.Address, &d.Completed, &d.CreatedAt)
		return d, err
	})
}

// CreatePickup persists a pickup record for its order.
func (r *FulfillmentRepository) CreatePickup(ctx context.Context, p *order.Pickup) error {
	err := r.pool.QueryRow(ctx, createPickupSQL,
		p.OrderID, p.PickupDate, p.PickupTime.Format(clockLayout), p.Completed,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "creating pickup for order %s", p.OrderID)
	}
	return nil
}

// GetPickup returns a pickup by its primary key.
func (r *FulfillmentRepository) GetPickup(ctx context.Context, id int64) (*order.Pickup, error) {
	rows, err := r.pool.Query(ctx, getPickupSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting pickup %d", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPickup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrFulfillmentNotFound
		}
		return nil, errors.Wrapf(err, "getting pickup %d", id)
	}
	return &p, nil
}

// UpdatePickup persists the mutable pickup fields.
func (r *FulfillmentRepository) UpdatePickup(ctx context.Context, p *order.Pickup) error {
	tag, err := r.pool.Exec(ctx, updatePickupSQL,
		p.ID, p.PickupDate, p.PickupTime.Format(clockLayout), p.Completed,
	)
	if err != nil {
		return errors.Wrapf(err, "updating pickup %d", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrFulfillmentNotFound
	}
	return nil
}

// DeletePickup removes a pickup by its primary key.
func (r *FulfillmentRepository) DeletePickup(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deletePickupSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting pickup %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrFulfillmentNotFound
	}
	return nil
}

// ListPickups returns pickups visible within the scope, newest first.
func (r *FulfillmentRepository) ListPickups(ctx context.Context, scope order.Scope) ([]order.Pickup, error) {
	query, arg, err := scopedQuery(scope, listPickupsByCustomerSQL, listPickupsBySellerSQL)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "listing pickups")
	}
	return pgx.CollectRows(rows, scanPickup)
}

func scanPickup(row pgx.CollectableRow) (order.Pickup, error) {
	var (
		p     order.Pickup
		clock string
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.PickupDate, &clock, &p.Completed, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.PickupTime, err = time.Parse(clockLayout, clock)
	return p, err
}
