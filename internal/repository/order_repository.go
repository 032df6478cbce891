package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// OrderRepo stores orders. Rows carry their own copy of the tier data.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderSelect = `SELECT r.id, r.customer_profile_id, cp.user_id, r.business_profile_id, bp.user_id,
		r.offer_detail_id, r.title, r.offer_type, r.status, r.price_cents, r.features,
		r.revisions, r.delivery_time_in_days, r.created_at, r.updated_at
	FROM orders r
	JOIN customer_profiles cp ON cp.id = r.customer_profile_id
	JOIN business_profiles bp ON bp.id = r.business_profile_id`

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o        model.Order
		detailID sql.NullInt64
		tier     string
		status   string
		cents    int64
		features string
	)
	if err := s.Scan(&o.ID, &o.CustomerProfileID, &o.CustomerUserID, &o.BusinessProfileID, &o.BusinessUserID,
		&detailID, &o.Title, &tier, &status, &cents, &features,
		&o.Revisions, &o.DeliveryTimeInDays, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	if detailID.Valid {
		id := uint64(detailID.Int64)
		o.OfferDetailID = &id
	}
	o.OfferType = model.Tier(tier)
	o.Status = model.OrderStatus(status)
	o.Price = codec.Price(cents)
	o.Features = codec.SplitFeatures(features)
	return o, nil
}

// Create inserts a snapshot order and fills in id and timestamps.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	features, err := codec.JoinFeatures(o.Features)
	if err != nil {
		return err
	}
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (customer_profile_id, business_profile_id, offer_detail_id, title, offer_type, status,
		                     price_cents, features, revisions, delivery_time_in_days, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.CustomerProfileID, o.BusinessProfileID, o.OfferDetailID, o.Title, string(o.OfferType), string(o.Status),
		int64(o.Price), features, o.Revisions, o.DeliveryTimeInDays, ts, ts)
	if err != nil {
		return translate("insert order", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate("insert order", err)
	}
	o.ID, o.CreatedAt, o.UpdatedAt = uint64(id), ts, ts
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uint64) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE r.id=?`, id))
	if err != nil {
		return model.Order{}, translate("get order", err)
	}
	return o, nil
}

// UpdateStatus changes only the status column.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status=?, updated_at=? WHERE id=?`, string(status), now(), id)
	if err != nil {
		return translate("update order status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns orders the user takes part in, as buyer or seller.
func (r *OrderRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE cp.user_id=? OR bp.user_id=? ORDER BY r.id`, userID, userID)
	if err != nil {
		return nil, translate("list orders", err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, translate("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list orders", err)
	}
	return out, nil
}

// ExistsBetween reports whether the customer ever ordered from the business.
func (r *OrderRepo) ExistsBetween(ctx context.Context, customerProfileID, businessProfileID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM orders WHERE customer_profile_id=? AND business_profile_id=? LIMIT 1`,
		customerProfileID, businessProfileID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translate("check orders", err)
	}
	return true, nil
}

// CountForBusiness counts the business profile's orders. A nil status counts all.
func (r *OrderRepo) CountForBusiness(ctx context.Context, businessProfileID uint64, status *model.OrderStatus) (int64, error) {
	q := `SELECT COUNT(*) FROM orders WHERE business_profile_id=?`
	args := []any{businessProfileID}
	if status != nil {
		q += ` AND status=?`
		args = append(args, string(*status))
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, translate("count orders", err)
	}
	return n, nil
}
