// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

import "time"

// Routing keys double as durable queue names on the default exchange.
const (
	OrderCreatedKey      = "order.created"
	ReviewCreatedKey     = "review.created"
	AccountActivationKey = "account.activation"
)

// Keys lists every queue the notifier consumes.
var Keys = []string{OrderCreatedKey, ReviewCreatedKey, AccountActivationKey}

// OrderCreatedEvent is published after an order commits. It carries the
// snapshot so consumers need not query the primary database.
type OrderCreatedEvent struct {
	OrderID        uint64    `json:"order_id"`
	CustomerUserID uint64    `json:"customer_user_id"`
	BusinessUserID uint64    `json:"business_user_id"`
	Title          string    `json:"title"`
	OfferType      string    `json:"offer_type"`
	Price          string    `json:"price"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewCreatedEvent is published after a review commits.
type ReviewCreatedEvent struct {
	ReviewID       uint64    `json:"review_id"`
	ReviewerUserID uint64    `json:"reviewer_user_id"`
	BusinessUserID uint64    `json:"business_user_id"`
	Rating         int       `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
}

// AccountActivationEvent asks the notifier to mail an activation link.
type AccountActivationEvent struct {
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	ActivationURL string    `json:"activation_url"`
	RequestedAt   time.Time `json:"requested_at"`
}
