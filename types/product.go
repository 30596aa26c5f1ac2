package types

import "time"

// Product represents a catalog entry that can be placed in a cart.
type Product struct {
	// ID is the unique identifier of the product (UUID).
	ID string `json:"id" db:"id"`

	// Name is the unique, human-readable product name.
	Name string `json:"name" db:"name"`

	// Description is the product description shown on the product page.
	Description string `json:"description" db:"description"`

	// Image is an image reference: either an external URL supplied on
	// creation or the public download path of an uploaded image.
	Image string `json:"image" db:"image"`

	// ImageKey is the object storage key of an uploaded image, if any.
	ImageKey string `json:"-" db:"image_key"`

	// Price is the unit price.
	Price float64 `json:"price" db:"price"`

	// Stock is the advertised stock count. It is informational only;
	// carts do not reserve stock.
	Stock int `json:"stock" db:"stock"`

	// CreatedAt is the timestamp when the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
