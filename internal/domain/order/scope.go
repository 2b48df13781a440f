package order

import (
	"github.com/velles/storefront/internal/domain/auth"
)

// Scope restricts order and fulfillment queries to what a principal may see.
// Exactly one of the fields is set. Both the order and fulfillment list
// paths consume the same scope, so the visibility rule lives in one place.
type Scope struct {
	// CustomerID filters to orders placed by this user.
	CustomerID string
	// SellerID filters to orders containing at least one product from a shop
	// owned by this user. Results are de-duplicated: an order referencing
	// several of the seller's products appears once.
	SellerID string
}

// ScopeFor derives the query scope from the authenticated principal.
func ScopeFor(p auth.Principal) Scope {
	if p.Role == auth.RoleSeller {
		return Scope{SellerID: p.UserID}
	}
	return Scope{CustomerID: p.UserID}
}
