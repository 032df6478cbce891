package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// OfferRepo stores offers and their tiers.
type OfferRepo struct{ db *sql.DB }

func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerColumns = `o.id, o.business_profile_id, bp.user_id, o.title, o.description,
	o.image_key, o.image_uploaded_at, o.created_at, o.updated_at`

const detailColumns = `d.id, d.offer_id, d.offer_type, d.title, d.price_cents, d.features,
	d.revisions, d.delivery_time_in_days, d.created_at, d.updated_at`

// tierOrder keeps tiers in basic, standard, premium order.
const tierOrder = "FIELD(d.offer_type, 'basic', 'standard', 'premium')"

type rowScanner interface{ Scan(dest ...any) error }

func scanOffer(s rowScanner, extra ...any) (model.Offer, error) {
	var (
		o          model.Offer
		imageKey   sql.NullString
		uploadedAt sql.NullTime
	)
	dest := append([]any{&o.ID, &o.BusinessProfileID, &o.UserID, &o.Title, &o.Description,
		&imageKey, &uploadedAt, &o.CreatedAt, &o.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return o, err
	}
	if imageKey.Valid && imageKey.String != "" {
		o.Image = &model.FileRef{Key: imageKey.String, UploadedAt: uploadedAt.Time}
	}
	return o, nil
}

func scanDetail(s rowScanner) (model.OfferDetail, error) {
	var (
		d        model.OfferDetail
		tier     string
		cents    int64
		features string
	)
	if err := s.Scan(&d.ID, &d.OfferID, &tier, &d.Title, &cents, &features,
		&d.Revisions, &d.DeliveryTimeInDays, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	d.Type = model.Tier(tier)
	d.Price = codec.Price(cents)
	d.Features = codec.SplitFeatures(features)
	return d, nil
}

func imageColumns(img *model.FileRef) (any, any) {
	if img == nil {
		return nil, nil
	}
	return img.Key, img.UploadedAt
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Create inserts the offer and all of its tiers in one transaction and fills
// in the generated ids and timestamps.
func (r *OfferRepo) Create(ctx context.Context, o *model.Offer) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin", err)
	}
	defer finish(tx, &err)

	ts := now()
	key, uploaded := imageColumns(o.Image)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO offers (business_profile_id, title, description, image_key, image_uploaded_at, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		o.BusinessProfileID, o.Title, o.Description, key, uploaded, ts, ts)
	if err != nil {
		return translate("insert offer", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate("insert offer", err)
	}
	o.ID, o.CreatedAt, o.UpdatedAt = uint64(id), ts, ts

	for i := range o.Details {
		o.Details[i].OfferID = o.ID
		if err = insertDetailTx(ctx, tx, &o.Details[i], ts); err != nil {
			return err
		}
	}
	o.RefreshAggregates()
	return nil
}

func insertDetailTx(ctx context.Context, tx *sql.Tx, d *model.OfferDetail, ts time.Time) error {
	features, err := codec.JoinFeatures(d.Features)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO offer_details (offer_id, offer_type, title, price_cents, features, revisions, delivery_time_in_days, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		d.OfferID, string(d.Type), d.Title, int64(d.Price), features, d.Revisions, d.DeliveryTimeInDays, ts, ts)
	if err != nil {
		return translate("insert offer detail", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate("insert offer detail", err)
	}
	d.ID, d.CreatedAt, d.UpdatedAt = uint64(id), ts, ts
	return nil
}

func updateDetailTx(ctx context.Context, tx *sql.Tx, d *model.OfferDetail, ts time.Time) error {
	features, err := codec.JoinFeatures(d.Features)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE offer_details
		    SET title=?, price_cents=?, features=?, revisions=?, delivery_time_in_days=?, updated_at=?
		  WHERE id=? AND offer_id=?`,
		d.Title, int64(d.Price), features, d.Revisions, d.DeliveryTimeInDays, ts, d.ID, d.OfferID)
	if err != nil {
		return translate("update offer detail", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// DSN sets ClientFoundRows: zero means no such row, not an unchanged one.
		return ErrNotFound
	}
	d.UpdatedAt = ts
	return nil
}

// Update writes the offer row and every planned tier change in one
// transaction. Either all of them commit or none do.
func (r *OfferRepo) Update(ctx context.Context, o *model.Offer, changes []model.TierChange) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin", err)
	}
	defer finish(tx, &err)

	ts := now()
	key, uploaded := imageColumns(o.Image)
	if _, err = tx.ExecContext(ctx,
		`UPDATE offers SET title=?, description=?, image_key=?, image_uploaded_at=?, updated_at=? WHERE id=?`,
		o.Title, o.Description, key, uploaded, ts, o.ID); err != nil {
		return translate("update offer", err)
	}
	o.UpdatedAt = ts

	for i := range changes {
		ch := &changes[i]
		ch.Detail.OfferID = o.ID
		switch ch.Action {
		case model.TierCreate:
			err = insertDetailTx(ctx, tx, &ch.Detail, ts)
		case model.TierUpdate:
			err = updateDetailTx(ctx, tx, &ch.Detail, ts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Get loads one offer with its full tiers and computed aggregates.
func (r *OfferRepo) Get(ctx context.Context, id uint64) (model.Offer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+offerColumns+`
		FROM offers o
		JOIN business_profiles bp ON bp.id = o.business_profile_id
		WHERE o.id=?`, id)
	o, err := scanOffer(row)
	if err != nil {
		return model.Offer{}, translate("get offer", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+detailColumns+`
		FROM offer_details d WHERE d.offer_id=? ORDER BY `+tierOrder, id)
	if err != nil {
		return model.Offer{}, translate("get offer details", err)
	}
	defer rows.Close()
	o.Details = []model.OfferDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return model.Offer{}, translate("scan offer detail", err)
		}
		o.Details = append(o.Details, d)
	}
	if err := rows.Err(); err != nil {
		return model.Offer{}, translate("get offer details", err)
	}
	o.RefreshAggregates()
	return o, nil
}

// GetDetail loads a single tier together with the title and business
// profile of its offer.
func (r *OfferRepo) GetDetail(ctx context.Context, id uint64) (model.TierSource, error) {
	var src model.TierSource
	row := r.db.QueryRowContext(ctx, `SELECT `+detailColumns+`, o.title, o.business_profile_id
		FROM offer_details d
		JOIN offers o ON o.id = d.offer_id
		WHERE d.id=?`, id)
	d, err := scanDetail(scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &src.OfferTitle, &src.BusinessProfileID)...)
	}))
	if err != nil {
		return model.TierSource{}, translate("get offer detail", err)
	}
	src.Detail = d
	return src, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// TitleTaken reports whether the business already uses title on an offer
// other than excludeID (0 excludes nothing).
func (r *OfferRepo) TitleTaken(ctx context.Context, businessProfileID uint64, title string, excludeID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offers WHERE business_profile_id=? AND title=? AND id<>?`,
		businessProfileID, title, excludeID).Scan(&n)
	if err != nil {
		return false, translate("check offer title", err)
	}
	return n > 0, nil
}

// Delete removes the offer. Tiers cascade; orders keep their snapshot and
// lose the tier reference.
func (r *OfferRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE id=?`, id)
	if err != nil {
		return translate("delete offer", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOffers is used by the statistics endpoint.
func (r *OfferRepo) CountOffers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offers`).Scan(&n); err != nil {
		return 0, translate("count offers", err)
	}
	return n, nil
}

// List returns one page of offers with aggregates and tier links (ID and
// Type only), plus the total number of matches.
func (r *OfferRepo) List(ctx context.Context, q OfferQuery) ([]model.Offer, int64, error) {
	q = q.normalized()
	cond, args := q.where()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+offerListFrom+` WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate("count offers", err)
	}

	dataSQL := `SELECT ` + offerColumns + `, agg.min_price, agg.min_delivery ` + offerListFrom +
		` WHERE ` + cond + ` ORDER BY ` + q.orderBy() + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), q.PageSize, q.offset())...)
	if err != nil {
		return nil, 0, translate("list offers", err)
	}
	defer rows.Close()

	out := make([]model.Offer, 0, q.PageSize)
	index := map[uint64]int{}
	for rows.Next() {
		var minPrice, minDelivery sql.NullInt64
		o, err := scanOffer(rows, &minPrice, &minDelivery)
		if err != nil {
			return nil, 0, translate("scan offer", err)
		}
		if minPrice.Valid {
			p := codec.Price(minPrice.Int64)
			o.MinPrice = &p
		}
		if minDelivery.Valid {
			d := int(minDelivery.Int64)
			o.MinDeliveryTime = &d
		}
		o.Details = []model.OfferDetail{}
		index[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("list offers", err)
	}
	if len(out) == 0 {
		return out, total, nil
	}

	ids := make([]any, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	linkRows, err := r.db.QueryContext(ctx, `SELECT d.id, d.offer_id, d.offer_type FROM offer_details d
		WHERE d.offer_id IN (`+placeholders(len(ids))+`) ORDER BY d.offer_id, `+tierOrder, ids...)
	if err != nil {
		return nil, 0, translate("list offer details", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var (
			d    model.OfferDetail
			tier string
		)
		if err := linkRows.Scan(&d.ID, &d.OfferID, &tier); err != nil {
			return nil, 0, translate("scan offer detail", err)
		}
		d.Type = model.Tier(tier)
		if i, ok := index[d.OfferID]; ok {
			out[i].Details = append(out[i].Details, d)
		}
	}
	if err := linkRows.Err(); err != nil {
		return nil, 0, translate("list offer details", err)
	}
	return out, total, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
