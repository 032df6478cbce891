package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/codec"
)

func duplicate(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: fmt.Sprintf("Duplicate entry 'x' for key '%s'", key)}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"offer title", duplicate("offers.uq_offers_business_title"), ErrDuplicateTitle},
		{"tier", duplicate("offer_details.uq_offer_details_offer_tier"), ErrDuplicateTier},
		{"review", duplicate("uq_reviews_reviewer_business"), ErrDuplicateReview},
		{"email", duplicate("users.uq_users_email"), ErrDuplicateUser},
		{"wrapped", fmt.Errorf("exec: %w", duplicate("uq_offers_business_title")), ErrDuplicateTitle},
		{"already translated", ErrDuplicateTier, ErrDuplicateTier},
		{"other duplicate", duplicate("PRIMARY"), ErrPersistence},
		{"other driver error", &mysql.MySQLError{Number: 1452, Message: "fk"}, ErrPersistence},
		{"plain", errors.New("connection refused"), ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate("op", tt.in), tt.want)
		})
	}
	assert.NoError(t, translate("op", nil))
}

func TestPersistenceErrorKeepsCause(t *testing.T) {
	err := translate("insert offer", errors.New("disk full"))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert offer", pe.Op)
	assert.Contains(t, err.Error(), "disk full")
}

func TestOfferQueryWhere(t *testing.T) {
	creator := uint64(7)
	price := codec.Price(20000)
	days := 5
	q := OfferQuery{CreatorID: &creator, MinPrice: &price, MaxDeliveryTime: &days, Search: " Logo_% "}.normalized()

	cond, args := q.where()
	assert.Equal(t, "bp.user_id = ? AND agg.min_price <= ? AND agg.min_delivery <= ? AND (LOWER(o.title) LIKE ? OR LOWER(o.description) LIKE ?)", cond)
	require.Len(t, args, 5)
	assert.Equal(t, uint64(7), args[0])
	assert.Equal(t, int64(20000), args[1])
	assert.Equal(t, 5, args[2])
	assert.Equal(t, `%logo\_\%%`, args[3])
}

func TestOfferQueryNormalized(t *testing.T) {
	q := OfferQuery{Page: 0, PageSize: 500, Ordering: "title"}.normalized()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)
	assert.Equal(t, "o.updated_at DESC, o.id DESC", q.orderBy())

	q = OfferQuery{Page: 3, Ordering: "min_price"}.normalized()
	assert.Equal(t, DefaultPageSize, q.PageSize)
	assert.Equal(t, 12, q.offset())
	assert.Equal(t, "agg.min_price ASC, o.id ASC", q.orderBy())

	cond, args := OfferQuery{}.normalized().where()
	assert.Equal(t, "1=1", cond)
	assert.Empty(t, args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?,?,?", placeholders(3))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "", placeholders(0))
}
