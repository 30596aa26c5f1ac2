// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/kooshamoradpour/G5-TechStore/types"
)

type cartLine struct {
	productID string
	quantity  int
	addedAt   time.Time
}

// DB holds users, products and carts behind one mutex. The lock is held
// only for map operations, never across caller work such as hashing.
type DB struct {
	mu       sync.Mutex
	users    map[string]types.User
	products map[string]types.Product
	carts    map[string][]cartLine
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[string]types.User),
		products: make(map[string]types.Product),
		carts:    make(map[string][]cartLine),
	}
}

func (db *DB) Users() *UserRepo       { return &UserRepo{db: db} }
func (db *DB) Products() *ProductRepo { return &ProductRepo{db: db} }
func (db *DB) Carts() *CartRepo       { return &CartRepo{db: db} }

// --- users ---

type UserRepo struct{ db *DB }

func (r *UserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Username == user.Username {
			return types.User{}, &store.ConflictError{Constraint: store.ConstraintUsername}
		}
		if existing.Email == user.Email {
			return types.User{}, &store.ConflictError{Constraint: store.ConstraintEmail}
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Cart = nil
	r.db.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	r.db.users[id] = user
	return nil
}

func (r *UserRepo) SetAdmin(ctx context.Context, email string, isAdmin bool) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, user := range r.db.users {
		if user.Email == email {
			user.IsAdmin = isAdmin
			user.UpdatedAt = time.Now().UTC()
			r.db.users[id] = user
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

// Delete removes a user and, like ON DELETE CASCADE, its cart.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.users, id)
	delete(r.db.carts, id)
	return nil
}

// --- products ---

type ProductRepo struct{ db *DB }

func (r *ProductRepo) sorted() []types.Product {
	products := make([]types.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products
}

func (r *ProductRepo) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}
	all := r.sorted()
	if offset >= len(all) {
		return []types.Product{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *ProductRepo) ListAll(ctx context.Context) ([]types.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(), nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (types.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	product, ok := r.db.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (r *ProductRepo) GetByName(ctx context.Context, name string) (types.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, product := range r.db.products {
		if product.Name == name {
			return product, nil
		}
	}
	return types.Product{}, store.ErrNotFound
}

func (r *ProductRepo) Create(ctx context.Context, product types.Product) (types.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.products {
		if existing.Name == product.Name {
			return types.Product{}, &store.ConflictError{Constraint: store.ConstraintProductName}
		}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.db.products[product.ID] = product
	return product, nil
}

func (r *ProductRepo) SetImage(ctx context.Context, id, image, imageKey string) (types.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	product, ok := r.db.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	product.Image = image
	product.ImageKey = imageKey
	product.UpdatedAt = time.Now().UTC()
	r.db.products[id] = product
	return product, nil
}

// Delete removes a product. Cart lines referencing it are left dangling.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.products, id)
	return nil
}

// --- carts ---

type CartRepo struct{ db *DB }

func (r *CartRepo) UpsertLine(ctx context.Context, userID, productID string, quantity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[productID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := r.db.users[userID]; !ok {
		return store.ErrOwnerNotFound
	}
	lines := r.db.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity = quantity
			return nil
		}
	}
	r.db.carts[userID] = append(lines, cartLine{productID: productID, quantity: quantity, addedAt: time.Now().UTC()})
	return nil
}

func (r *CartRepo) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	lines := r.db.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity = quantity
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *CartRepo) DeleteLine(ctx context.Context, userID, productID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	lines := r.db.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			r.db.carts[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *CartRepo) ListLines(ctx context.Context, userID string) ([]types.CartItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	lines := r.db.carts[userID]
	items := make([]types.CartItem, 0, len(lines))
	for _, line := range lines {
		item := types.CartItem{ProductID: line.productID, Quantity: line.quantity, AddedAt: line.addedAt}
		if product, ok := r.db.products[line.productID]; ok {
			item.Product = &product
		}
		items = append(items, item)
	}
	return items, nil
}
