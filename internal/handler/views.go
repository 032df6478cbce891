package handler

import (
	"fmt"
	"time"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// tierLink is how list responses show a tier.
type tierLink struct {
	ID  uint64 `json:"id"`
	URL string `json:"url"`
}

type tierView struct {
	ID                 uint64      `json:"id"`
	OfferID            uint64      `json:"offer_id"`
	Title              string      `json:"title"`
	OfferType          model.Tier  `json:"offer_type"`
	Price              codec.Price `json:"price"`
	Features           []string    `json:"features"`
	Revisions          int         `json:"revisions"`
	DeliveryTimeInDays int         `json:"delivery_time_in_days"`
}

// offerView's Details holds []tierLink in lists and []tierView otherwise.
type offerView struct {
	ID              uint64       `json:"id"`
	User            uint64       `json:"user"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Image           *string      `json:"image"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Details         any          `json:"details"`
	MinPrice        *codec.Price `json:"min_price"`
	MinDeliveryTime *int         `json:"min_delivery_time"`
}

type pageView struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []offerView `json:"results"`
}

type orderView struct {
	ID                 uint64            `json:"id"`
	CustomerUser       uint64            `json:"customer_user"`
	BusinessUser       uint64            `json:"business_user"`
	Title              string            `json:"title"`
	Status             model.OrderStatus `json:"status"`
	OfferType          model.Tier        `json:"offer_type"`
	Price              codec.Price       `json:"price"`
	Features           []string          `json:"features"`
	Revisions          int               `json:"revisions"`
	DeliveryTimeInDays int               `json:"delivery_time_in_days"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type reviewView struct {
	ID           uint64    `json:"id"`
	Reviewer     uint64    `json:"reviewer"`
	BusinessUser uint64    `json:"business_user"`
	Rating       int       `json:"rating"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// APIPrefix is the path every marketplace route is mounted under. Links in
// responses include it.
const APIPrefix = "/v1"

func tierURL(id uint64) string { return fmt.Sprintf("%s/offerdetails/%d/", APIPrefix, id) }

func viewTier(d model.OfferDetail) tierView {
	features := d.Features
	if features == nil {
		features = []string{}
	}
	return tierView{
		ID:                 d.ID,
		OfferID:            d.OfferID,
		Title:              d.Title,
		OfferType:          d.Type,
		Price:              d.Price,
		Features:           features,
		Revisions:          d.Revisions,
		DeliveryTimeInDays: d.DeliveryTimeInDays,
	}
}

func viewOffer(o model.Offer, links bool) offerView {
	v := offerView{
		ID:              o.ID,
		User:            o.UserID,
		Title:           o.Title,
		Description:     o.Description,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		MinPrice:        o.MinPrice,
		MinDeliveryTime: o.MinDeliveryTime,
	}
	if o.Image != nil && o.Image.URL != "" {
		url := o.Image.URL
		v.Image = &url
	}
	if links {
		out := make([]tierLink, 0, len(o.Details))
		for _, d := range o.Details {
			out = append(out, tierLink{ID: d.ID, URL: tierURL(d.ID)})
		}
		v.Details = out
		return v
	}
	out := make([]tierView, 0, len(o.Details))
	for _, d := range o.Details {
		out = append(out, viewTier(d))
	}
	v.Details = out
	return v
}

func viewOrder(o model.Order) orderView {
	features := o.Features
	if features == nil {
		features = []string{}
	}
	return orderView{
		ID:                 o.ID,
		CustomerUser:       o.CustomerUserID,
		BusinessUser:       o.BusinessUserID,
		Title:              o.Title,
		Status:             o.Status,
		OfferType:          o.OfferType,
		Price:              o.Price,
		Features:           features,
		Revisions:          o.Revisions,
		DeliveryTimeInDays: o.DeliveryTimeInDays,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func viewReview(r model.Review) reviewView {
	return reviewView{
		ID:           r.ID,
		Reviewer:     r.ReviewerUserID,
		BusinessUser: r.BusinessUserID,
		Rating:       r.Rating,
		Description:  r.Description,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
