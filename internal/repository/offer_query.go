package repository

import (
	"strings"

	"github.com/iliyamo/service-marketplace/internal/codec"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 60
)

// OfferQuery defines filters, ordering and pagination for listing offers.
// Nil filters are not applied.
type OfferQuery struct {
	CreatorID       *uint64      // business user id
	MinPrice        *codec.Price // keep offers whose cheapest tier costs at most this
	MaxDeliveryTime *int         // keep offers whose fastest tier takes at most this many days
	Search          string       // substring of title or description
	Ordering        string       // updated_at, -updated_at, min_price, -min_price
	Page            int
	PageSize        int
}

// Aggregates come from a derived table so filters and ordering can use them.
const offerListFrom = `FROM offers o
	JOIN business_profiles bp ON bp.id = o.business_profile_id
	LEFT JOIN (
		SELECT offer_id, MIN(price_cents) AS min_price, MIN(delivery_time_in_days) AS min_delivery
		FROM offer_details GROUP BY offer_id
	) agg ON agg.offer_id = o.id`

var offerOrderings = map[string]string{
	"updated_at":  "o.updated_at ASC, o.id ASC",
	"-updated_at": "o.updated_at DESC, o.id DESC",
	"min_price":   "agg.min_price ASC, o.id ASC",
	"-min_price":  "agg.min_price DESC, o.id DESC",
}

const defaultOfferOrdering = "-updated_at"

// ValidOrdering reports whether s is an accepted ordering value.
func ValidOrdering(s string) bool {
	_, ok := offerOrderings[s]
	return ok
}

func (q OfferQuery) normalized() OfferQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if !ValidOrdering(q.Ordering) {
		q.Ordering = defaultOfferOrdering
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q OfferQuery) offset() int { return (q.Page - 1) * q.PageSize }

func (q OfferQuery) orderBy() string { return offerOrderings[q.Ordering] }

func (q OfferQuery) where() (string, []any) {
	where := []string{}
	args := []any{}

	if q.CreatorID != nil {
		where = append(where, "bp.user_id = ?")
		args = append(args, *q.CreatorID)
	}
	if q.MinPrice != nil {
		where = append(where, "agg.min_price <= ?")
		args = append(args, int64(*q.MinPrice))
	}
	if q.MaxDeliveryTime != nil {
		where = append(where, "agg.min_delivery <= ?")
		args = append(args, *q.MaxDeliveryTime)
	}
	if q.Search != "" {
		like := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, "(LOWER(o.title) LIKE ? OR LOWER(o.description) LIKE ?)")
		args = append(args, like, like)
	}

	if len(where) == 0 {
		return "1=1", args
	}
	return strings.Join(where, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
