package types

import "time"

// CartItem is a single cart line joined with the product it references.
type CartItem struct {
	// ProductID is the referenced product. A product appears at most once
	// per cart.
	ProductID string `json:"product_id" db:"product_id"`

	// Quantity is always at least 1.
	Quantity int `json:"quantity" db:"quantity"`

	// AddedAt is when the line was first added. Later quantity changes
	// keep the line in place.
	AddedAt time.Time `json:"added_at" db:"added_at"`

	// Product is the joined product, or nil when the referenced product
	// no longer exists.
	Product *Product `json:"product"`
}
