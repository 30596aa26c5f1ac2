package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/rs/zerolog"
)

// CartRepository defines the atomic cart writes. Every method is scoped by
// both the owning user and the product.
type CartRepository interface {
	CartReader
	UpsertLine(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	DeleteLine(ctx context.Context, userID, productID string) error
}

// maxQuantity is the largest quantity a cart_lines INTEGER column holds.
const maxQuantity = math.MaxInt32

func validQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= maxQuantity
}

// CartService mutates the caller's own cart. No operation accepts a user
// id; the owner always comes from the request identity.
type CartService struct {
	users  UserRepository
	carts  CartRepository
	events *Events
	logger zerolog.Logger
}

func NewCartService(users UserRepository, carts CartRepository, events *Events, logger zerolog.Logger) *CartService {
	return &CartService{
		users:  users,
		carts:  carts,
		events: events,
		logger: logger,
	}
}

// Add puts productID in the cart. Adding a product that is already in the
// cart overwrites its quantity, so a product never appears twice.
func (s *CartService) Add(ctx context.Context, productID string, quantity int) (types.User, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return types.User{}, err
	}
	if !validQuantity(quantity) {
		return types.User{}, ErrInvalidQuantity
	}
	pid, ok := normalizeID(productID)
	if !ok {
		return types.User{}, fmt.Errorf("%w: product not found", ErrNotFound)
	}

	if err := s.carts.UpsertLine(ctx, id.UserID, pid, quantity); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, fmt.Errorf("%w: product not found", ErrNotFound)
		case errors.Is(err, store.ErrOwnerNotFound):
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, internalError("add cart line", err)
	}

	s.logger.Debug().Str("user_id", id.UserID).Str("product_id", pid).Int("quantity", quantity).Msg("cart line added")
	s.events.Emit(ctx, Event{Type: EventCartUpdated, UserID: id.UserID, ProductID: pid, Action: "add", Quantity: quantity})
	return loadUser(ctx, s.users, s.carts, id.UserID)
}

// UpdateQuantity sets the quantity of a line already in the caller's cart.
// A quantity below 1 is rejected rather than treated as a removal.
// Quantities beyond maxQuantity are rejected too.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) (types.User, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return types.User{}, err
	}
	if !validQuantity(quantity) {
		return types.User{}, ErrInvalidQuantity
	}
	pid, ok := normalizeID(productID)
	if !ok {
		return types.User{}, ErrLineNotFound
	}

	if err := s.carts.SetQuantity(ctx, id.UserID, pid, quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrLineNotFound
		}
		return types.User{}, internalError("update cart line", err)
	}

	s.logger.Debug().Str("user_id", id.UserID).Str("product_id", pid).Int("quantity", quantity).Msg("cart line updated")
	s.events.Emit(ctx, Event{Type: EventCartUpdated, UserID: id.UserID, ProductID: pid, Action: "update", Quantity: quantity})
	return loadUser(ctx, s.users, s.carts, id.UserID)
}

// Remove deletes productID from the caller's cart. Removing a product that
// is not in the cart succeeds and leaves the cart unchanged.
func (s *CartService) Remove(ctx context.Context, productID string) (types.User, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return types.User{}, err
	}

	if pid, ok := normalizeID(productID); ok {
		if err := s.carts.DeleteLine(ctx, id.UserID, pid); err != nil {
			return types.User{}, internalError("remove cart line", err)
		}
		s.logger.Debug().Str("user_id", id.UserID).Str("product_id", pid).Msg("cart line removed")
		s.events.Emit(ctx, Event{Type: EventCartUpdated, UserID: id.UserID, ProductID: pid, Action: "remove"})
	}
	return loadUser(ctx, s.users, s.carts, id.UserID)
}

// Get returns the caller's cart joined with products.
func (s *CartService) Get(ctx context.Context) ([]types.CartItem, error) {
	id, err := CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.carts.ListLines(ctx, id.UserID)
	if err != nil {
		return nil, internalError("load cart", err)
	}
	return items, nil
}
