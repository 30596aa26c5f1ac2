package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

// ErrOwnerNotFound is returned when a cart write targets a user that no
// longer exists.
var ErrOwnerNotFound = errors.New("cart owner not found")

// CartRepository persists cart lines. Every statement is scoped by both
// user_id and product_id, so each mutation is a single atomic write that
// touches exactly one line of one user's cart.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// UpsertLine adds productID to the user's cart or, if the line exists,
// overwrites its quantity. It returns ErrNotFound when the product does
// not exist.
func (r *CartRepository) UpsertLine(ctx context.Context, userID, productID string, quantity int) error {
	const query = `
		INSERT INTO cart_lines (user_id, product_id, quantity, added_at)
		SELECT $1::uuid, $2::uuid, $3::integer, $4::timestamptz
		WHERE EXISTS (SELECT 1 FROM products WHERE id = $2::uuid)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity`
	result, err := r.db.ExecContext(ctx, query, userID, productID, quantity, time.Now().UTC())
	if err != nil {
		return translateCart(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuantity changes the quantity of an existing line. It returns
// ErrNotFound when the user's cart has no line for productID.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	const query = `
		UPDATE cart_lines
		SET quantity = $3
		WHERE user_id = $1 AND product_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, productID, quantity)
	if err != nil {
		return translateCart(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLine removes the line for productID. Removing an absent line is
// not an error.
func (r *CartRepository) DeleteLine(ctx context.Context, userID, productID string) error {
	const query = `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, productID)
	return err
}

// ListLines returns the user's cart in insertion order, joined with the
// referenced products. Lines whose product is gone have a nil Product.
func (r *CartRepository) ListLines(ctx context.Context, userID string) ([]types.CartItem, error) {
	const query = `
		SELECT c.product_id, c.quantity, c.added_at,
			p.id, p.name, p.description, p.image, p.image_key, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_lines c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.position`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []types.CartItem{}
	for rows.Next() {
		var (
			item        types.CartItem
			id          sql.NullString
			name        sql.NullString
			description sql.NullString
			image       sql.NullString
			imageKey    sql.NullString
			price       sql.NullFloat64
			stock       sql.NullInt64
			createdAt   sql.NullTime
			updatedAt   sql.NullTime
		)
		if err := rows.Scan(
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
			&id,
			&name,
			&description,
			&image,
			&imageKey,
			&price,
			&stock,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, err
		}
		if id.Valid {
			item.Product = &types.Product{
				ID:          id.String,
				Name:        name.String,
				Description: description.String,
				Image:       image.String,
				ImageKey:    imageKey.String,
				Price:       price.Float64,
				Stock:       int(stock.Int64),
				CreatedAt:   createdAt.Time,
				UpdatedAt:   updatedAt.Time,
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func translateCart(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ErrOwnerNotFound
	}
	return err
}
