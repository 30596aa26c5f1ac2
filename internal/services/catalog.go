package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/kooshamoradpour/G5-TechStore/internal/storage"
	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductRepository defines persistence operations for catalog products.
type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Product, int, error)
	ListAll(ctx context.Context) ([]types.Product, error)
	GetByID(ctx context.Context, id string) (types.Product, error)
	GetByName(ctx context.Context, name string) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	SetImage(ctx context.Context, id, image, imageKey string) (types.Product, error)
}

// ImageStore is satisfied by *storage.Storage.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type ProductInput struct {
	Name        string
	Description string
	Image       string
	Price       float64
	Stock       int
}

// CatalogService exposes the product catalog. Creating products and
// uploading images are admin operations.
type CatalogService struct {
	products ProductRepository
	images   ImageStore
	events   *Events
	logger   zerolog.Logger
}

// NewCatalogService constructs a CatalogService. images may be nil, in
// which case image uploads are disabled.
func NewCatalogService(products ProductRepository, images ImageStore, events *Events, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		images:   images,
		events:   events,
		logger:   logger,
	}
}

// ImagesEnabled reports whether an image store is configured.
func (s *CatalogService) ImagesEnabled() bool {
	return s.images != nil
}

func (s *CatalogService) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	products, total, err := s.products.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, internalError("list products", err)
	}
	return products, total, nil
}

func (s *CatalogService) All(ctx context.Context) ([]types.Product, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, internalError("list products", err)
	}
	return products, nil
}

func (s *CatalogService) GetByName(ctx context.Context, name string) (types.Product, error) {
	product, err := s.products.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return types.Product{}, internalError("get product", err)
	}
	return product, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (types.Product, error) {
	productID, ok := normalizeID(id)
	if !ok {
		return types.Product{}, fmt.Errorf("%w: product not found", ErrNotFound)
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return types.Product{}, internalError("get product", err)
	}
	return product, nil
}

// Create adds a product to the catalog. Admin only.
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (types.Product, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return types.Product{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return types.Product{}, invalidInput("product name is required")
	case in.Price < 0:
		return types.Product{}, invalidInput("price must not be negative")
	case in.Stock < 0:
		return types.Product{}, invalidInput("stock must not be negative")
	}

	product, err := s.products.Create(ctx, types.Product{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		Price:       in.Price,
		Stock:       in.Stock,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Product{}, fmt.Errorf("%w: a product named %q already exists", ErrDuplicateProduct, in.Name)
		}
		return types.Product{}, internalError("create product", err)
	}

	s.logger.Info().Str("product_id", product.ID).Str("admin_id", admin.UserID).Msg("product created")
	s.events.Emit(ctx, Event{Type: EventProductCreated, UserID: admin.UserID, ProductID: product.ID})
	return product, nil
}

// UploadImage stores an image for the product and points the product's
// image reference at it. Admin only.
func (s *CatalogService) UploadImage(ctx context.Context, productID, filename, contentType string, r io.Reader, size int64) (types.Product, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return types.Product{}, err
	}
	if s.images == nil {
		return types.Product{}, internalError("upload image", errors.New("image storage is not configured"))
	}
	product, err := s.Get(ctx, productID)
	if err != nil {
		return types.Product{}, err
	}

	ext := strings.ToLower(path.Ext(filename))
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return types.Product{}, invalidInput("file must be an image")
	}

	key := fmt.Sprintf("products/%s/%s%s", product.ID, uuid.NewString(), ext)
	if err := s.images.Put(ctx, key, r, size, contentType); err != nil {
		return types.Product{}, internalError("store image", err)
	}

	updated, err := s.products.SetImage(ctx, product.ID, ImagePath(product.ID), key)
	if err != nil {
		_ = s.images.Delete(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return types.Product{}, internalError("record image", err)
	}

	if product.ImageKey != "" && product.ImageKey != key {
		if err := s.images.Delete(ctx, product.ImageKey); err != nil {
			s.logger.Warn().Err(err).Str("key", product.ImageKey).Msg("delete replaced image")
		}
	}
	s.logger.Info().Str("product_id", product.ID).Str("key", key).Msg("product image uploaded")
	return updated, nil
}

// OpenImage returns the uploaded image of a product and its content type.
// The caller closes the reader.
func (s *CatalogService) OpenImage(ctx context.Context, productID string) (io.ReadCloser, string, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if s.images == nil || product.ImageKey == "" {
		return nil, "", fmt.Errorf("%w: product has no uploaded image", ErrNotFound)
	}
	rc, err := s.images.Get(ctx, product.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("%w: image object is missing", ErrNotFound)
		}
		return nil, "", internalError("open image", err)
	}
	contentType := mime.TypeByExtension(path.Ext(product.ImageKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// ImagePath is the public download path of a product's uploaded image.
func ImagePath(productID string) string {
	return "/products/" + productID + "/image"
}

func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
