// Package policy decides who may do what to offers, tiers, orders and reviews.
//
// Each endpoint family has a Policy: an ordered list of named rules. The
// first rule that allows the request wins and is reported in the Decision,
// so log lines can say why a request went through.
package policy

import (
	"errors"
	"net/http"

	"github.com/iliyamo/service-marketplace/internal/model"
)

var (
	// ErrUnauthorized is returned for unsafe requests without a caller.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when no rule allows the request.
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// Request is what a rule looks at. OwnerID is the user owning the target
// resource (offer creator, order seller, reviewer); zero for collection
// requests.
type Request struct {
	Method  string
	Caller  *model.Identity
	OwnerID uint64
}

// Rule allows a request or stays silent.
type Rule struct {
	Name   string
	Allows func(Request) bool
}

// Decision records the outcome and the rule that produced it.
type Decision struct {
	Allowed bool
	Rule    string
}

type Policy struct {
	Name  string
	Rules []Rule
}

// Evaluate runs the rules in order.
func (p Policy) Evaluate(r Request) Decision {
	for _, rule := range p.Rules {
		if rule.Allows(r) {
			return Decision{Allowed: true, Rule: rule.Name}
		}
	}
	return Decision{}
}

// Authorize is Evaluate reduced to an error.
func (p Policy) Authorize(r Request) error {
	if p.Evaluate(r).Allowed {
		return nil
	}
	if r.Caller == nil {
		return ErrUnauthorized
	}
	return ErrForbidden
}

func safe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isOwner(r Request) bool {
	return r.Caller != nil && r.OwnerID != 0 && r.Caller.UserID == r.OwnerID
}

var (
	ReadOnly = Rule{Name: "read_only", Allows: func(r Request) bool { return safe(r.Method) }}

	PostAsBusinessUser = Rule{Name: "post_as_business_user", Allows: func(r Request) bool {
		return r.Method == http.MethodPost && r.Caller.IsBusiness()
	}}

	PostAsCustomerUser = Rule{Name: "post_as_customer_user", Allows: func(r Request) bool {
		return r.Method == http.MethodPost && r.Caller.IsCustomer()
	}}

	PatchAsCreator  = ownerRule("patch_as_creator", http.MethodPatch)
	DeleteAsCreator = ownerRule("delete_as_creator", http.MethodDelete)

	// PatchAsSeller lets the business party of an order move its status.
	PatchAsSeller = ownerRule("patch_as_seller", http.MethodPatch)

	PatchAsReviewer  = ownerRule("patch_as_reviewer", http.MethodPatch)
	DeleteAsReviewer = ownerRule("delete_as_reviewer", http.MethodDelete)

	// AdminOverride lets staff edit or remove any existing resource.
	AdminOverride = Rule{Name: "admin_override", Allows: func(r Request) bool {
		return (r.Method == http.MethodPatch || r.Method == http.MethodDelete) && r.Caller.IsAdmin()
	}}
)

func ownerRule(name, method string) Rule {
	return Rule{Name: name, Allows: func(r Request) bool { return r.Method == method && isOwner(r) }}
}

var (
	Offers = Policy{Name: "offers", Rules: []Rule{ReadOnly, PostAsBusinessUser, PatchAsCreator, DeleteAsCreator, AdminOverride}}

	OfferDetails = Policy{Name: "offer_details", Rules: []Rule{ReadOnly}}

	Orders = Policy{Name: "orders", Rules: []Rule{ReadOnly, PostAsCustomerUser, PatchAsSeller, AdminOverride}}

	Reviews = Policy{Name: "reviews", Rules: []Rule{ReadOnly, PostAsCustomerUser, PatchAsReviewer, DeleteAsReviewer, AdminOverride}}
)
