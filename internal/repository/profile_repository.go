package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// ProfileRepo resolves users to their business or customer profile.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// BusinessByUser returns ErrNotFound when the user has no business profile.
func (r *ProfileRepo) BusinessByUser(ctx context.Context, userID uint64) (model.BusinessProfile, error) {
	var (
		p    model.BusinessProfile
		desc sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, location, tel, description, working_hours, created_at FROM business_profiles WHERE user_id=?`,
		userID).Scan(&p.ID, &p.UserID, &p.Location, &p.Tel, &desc, &p.WorkingHours, &p.CreatedAt)
	if err != nil {
		return model.BusinessProfile{}, translate("get business profile", err)
	}
	p.Description = desc.String
	return p, nil
}

// CustomerByUser returns ErrNotFound when the user has no customer profile.
func (r *ProfileRepo) CustomerByUser(ctx context.Context, userID uint64) (model.CustomerProfile, error) {
	var p model.CustomerProfile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM customer_profiles WHERE user_id=?`,
		userID).Scan(&p.ID, &p.UserID, &p.CreatedAt)
	if err != nil {
		return model.CustomerProfile{}, translate("get customer profile", err)
	}
	return p, nil
}

func (r *ProfileRepo) CountBusinessProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM business_profiles`).Scan(&n); err != nil {
		return 0, translate("count business profiles", err)
	}
	return n, nil
}
