package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// ReviewRepo stores customer reviews of businesses.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// ReviewQuery filters the review listing by user ids.
type ReviewQuery struct {
	BusinessUserID *uint64
	ReviewerUserID *uint64
	Ordering       string // updated_at, -updated_at, rating, -rating
}

var reviewOrderings = map[string]string{
	"updated_at":  "v.updated_at ASC, v.id ASC",
	"-updated_at": "v.updated_at DESC, v.id DESC",
	"rating":      "v.rating ASC, v.id ASC",
	"-rating":     "v.rating DESC, v.id DESC",
}

// ValidReviewOrdering reports whether s is a supported ordering.
func ValidReviewOrdering(s string) bool {
	_, ok := reviewOrderings[s]
	return ok
}

const reviewSelect = `SELECT v.id, v.reviewer_profile_id, cp.user_id, v.business_profile_id, bp.user_id,
		v.rating, v.description, v.created_at, v.updated_at
	FROM reviews v
	JOIN customer_profiles cp ON cp.id = v.reviewer_profile_id
	JOIN business_profiles bp ON bp.id = v.business_profile_id`

func scanReview(s rowScanner) (model.Review, error) {
	var v model.Review
	err := s.Scan(&v.ID, &v.ReviewerProfileID, &v.ReviewerUserID, &v.BusinessProfileID, &v.BusinessUserID,
		&v.Rating, &v.Description, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create inserts the review. A second review by the same reviewer for the
// same business fails with ErrDuplicateReview.
func (r *ReviewRepo) Create(ctx context.Context, v *model.Review) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (reviewer_profile_id, business_profile_id, rating, description, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)`,
		v.ReviewerProfileID, v.BusinessProfileID, v.Rating, v.Description, ts, ts)
	if err != nil {
		return translate("insert review", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate("insert review", err)
	}
	v.ID, v.CreatedAt, v.UpdatedAt = uint64(id), ts, ts
	return nil
}

func (r *ReviewRepo) Get(ctx context.Context, id uint64) (model.Review, error) {
	v, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+` WHERE v.id=?`, id))
	if err != nil {
		return model.Review{}, translate("get review", err)
	}
	return v, nil
}

// Update writes rating and description.
func (r *ReviewRepo) Update(ctx context.Context, v *model.Review) error {
	ts := now()
	if _, err := r.db.ExecContext(ctx, `UPDATE reviews SET rating=?, description=?, updated_at=? WHERE id=?`,
		v.Rating, v.Description, ts, v.ID); err != nil {
		return translate("update review", err)
	}
	v.UpdatedAt = ts
	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id=?`, id)
	if err != nil {
		return translate("delete review", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) List(ctx context.Context, q ReviewQuery) ([]model.Review, error) {
	where := []string{}
	args := []any{}
	if q.BusinessUserID != nil {
		where = append(where, "bp.user_id = ?")
		args = append(args, *q.BusinessUserID)
	}
	if q.ReviewerUserID != nil {
		where = append(where, "cp.user_id = ?")
		args = append(args, *q.ReviewerUserID)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	order, ok := reviewOrderings[q.Ordering]
	if !ok {
		order = reviewOrderings["-updated_at"]
	}

	rows, err := r.db.QueryContext(ctx, reviewSelect+` WHERE `+cond+` ORDER BY `+order, args...)
	if err != nil {
		return nil, translate("list reviews", err)
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, translate("scan review", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list reviews", err)
	}
	return out, nil
}

// RatingSummary returns the number of reviews and their average rating.
func (r *ReviewRepo) RatingSummary(ctx context.Context) (int64, float64, error) {
	var (
		n   int64
		avg sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(rating) FROM reviews`).Scan(&n, &avg); err != nil {
		return 0, 0, translate("rating summary", err)
	}
	return n, avg.Float64, nil
}
