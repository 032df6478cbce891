package model

import "time"

// Review is a customer's rating of a business. A reviewer has at most one
// review per business.
type Review struct {
	ID                uint64    // reviews.id
	ReviewerProfileID uint64    // reviews.reviewer_profile_id
	ReviewerUserID    uint64    // customer user behind the reviewer profile
	BusinessProfileID uint64    // reviews.business_profile_id
	BusinessUserID    uint64    // business user behind the business profile
	Rating            int       // reviews.rating, 1..5
	Description       string    // reviews.description
	CreatedAt         time.Time // reviews.created_at
	UpdatedAt         time.Time // reviews.updated_at
}

const (
	MinRating = 1
	MaxRating = 5
)
