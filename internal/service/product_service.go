package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

type productService struct {
	deps *Deps
}

// NewProductService creates a new product service
func NewProductService(deps *Deps) *productService {
	return &productService{deps: deps}
}

func productPath(id int64, suffix string) string {
	return "/admin/products/" + strconv.FormatInt(id, 10) + suffix
}

func productTarget(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

// ListQuery loads the whole catalogue; Inventory paginates it locally.
func (s *productService) ListQuery() Query {
	return Query{
		Key: ProductsKey(),
		Fetch: cache.Typed(func(ctx context.Context) ([]domain.Product, error) {
			return apiclient.Get[[]domain.Product](ctx, s.deps.API, "/admin/products", nil)
		}),
	}
}

func (s *productService) List(ctx context.Context) ([]domain.Product, error) {
	q := s.ListQuery()
	v, err := s.deps.Cache.Fetch(ctx, q.Key, q.Fetch)
	if err != nil {
		return nil, err
	}
	products, _ := v.([]domain.Product)
	return products, nil
}

// Get finds a product in the cached catalogue.
func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
}

func validateProduct(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &errors.ErrValidation{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &errors.ErrValidation{Field: "category", Message: "category is required"}
	}
	if in.Price.IsNegative() {
		return &errors.ErrValidation{Field: "price", Message: "price must not be negative"}
	}
	if in.Stock < 0 {
		return &errors.ErrValidation{Field: "stock", Message: "stock must not be negative"}
	}
	return nil
}

// Create adds a product.
func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	var created domain.Product
	err := s.deps.mutate(ctx, mutation{
		action:     "product.create",
		target:     in.Name,
		success:    "Product added successfully",
		fallback:   "Failed to add product",
		invalidate: []cache.Key{ProductsKey(), cache.K(KeyDashboardSummary)},
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPost, "/admin/products", nil, in, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateWithImage creates the product and, only if that succeeded and an image
// was given, uploads the image for the new id. A failed upload leaves the
// product created and is reported through the result, not as an error.
func (s *productService) CreateWithImage(ctx context.Context, in ProductInput, image *apiclient.FormFile) (*CreateProductResult, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	var created domain.Product
	err := s.deps.API.Do(ctx, http.MethodPost, "/admin/products", nil, in, &created)
	if err != nil {
		msg := apiclient.MessageOf(err, "Failed to add product")
		if !apiclient.IsUnauthorized(err) {
			s.deps.Notifier.Error(msg)
		}
		s.deps.record(ctx, "product.create", in.Name, domain.AuditOutcomeFailure, msg)
		return nil, err
	}

	result := &CreateProductResult{Product: &created}
	keys := []cache.Key{ProductsKey(), cache.K(KeyDashboardSummary)}

	if image == nil {
		s.deps.invalidate(ctx, keys...)
		s.deps.Notifier.Success("Product added successfully")
		s.deps.record(ctx, "product.create", productTarget(created.ID), domain.AuditOutcomeSuccess, "created")
		return result, nil
	}

	var updated domain.Product
	if err := s.uploadImage(ctx, created.ID, *image, &updated); err != nil {
		result.ImageErr = err
		msg := "Product created, but the image upload failed: " + apiclient.MessageOf(err, "upload error")
		s.deps.Logger.Warn("Image upload after create failed",
			zap.Int64("product_id", created.ID),
			zap.Error(err),
		)
		s.deps.invalidate(ctx, keys...)
		if !apiclient.IsUnauthorized(err) {
			s.deps.Notifier.Error(msg)
		}
		s.deps.record(ctx, "product.create", productTarget(created.ID), domain.AuditOutcomePartial, msg)
		return result, nil
	}
	if updated.ID != 0 {
		result.Product = &updated
	}

	s.deps.invalidate(ctx, keys...)
	s.deps.Notifier.Success("Product added successfully")
	s.deps.record(ctx, "product.create", productTarget(created.ID), domain.AuditOutcomeSuccess, "created with image")
	return result, nil
}

// Update sends only the fields set in patch.
func (s *productService) Update(ctx context.Context, id int64, patch ProductPatch) error {
	if patch.IsEmpty() {
		return ErrNoChanges
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return &errors.ErrValidation{Field: "price", Message: "price must not be negative"}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return &errors.ErrValidation{Field: "stock", Message: "stock must not be negative"}
	}

	return s.deps.mutate(ctx, mutation{
		action:     "product.update",
		target:     productTarget(id),
		success:    "Product updated successfully",
		fallback:   "Failed to update product",
		invalidate: []cache.Key{ProductsKey(), cache.K(KeyDashboardSummary)},
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPatch, productPath(id, ""), nil, patch, nil)
	})
}

// UploadImage replaces the image of an existing product.
func (s *productService) UploadImage(ctx context.Context, id int64, image apiclient.FormFile) error {
	return s.deps.mutate(ctx, mutation{
		action:     "product.image",
		target:     productTarget(id),
		success:    "Image uploaded successfully",
		fallback:   "Failed to upload image",
		invalidate: []cache.Key{ProductsKey()},
	}, func(ctx context.Context) error {
		return s.uploadImage(ctx, id, image, nil)
	})
}

func (s *productService) uploadImage(ctx context.Context, id int64, image apiclient.FormFile, out interface{}) error {
	if image.Field == "" {
		image.Field = "image"
	}
	return s.deps.API.Upload(ctx, productPath(id, "/image"), image, nil, out)
}

func (s *productService) Enable(ctx context.Context, id int64) error {
	return s.SetActive(ctx, id, true)
}

func (s *productService) Disable(ctx context.Context, id int64) error {
	return s.SetActive(ctx, id, false)
}

// SetActive toggles whether the product is offered to customers.
func (s *productService) SetActive(ctx context.Context, id int64, active bool) error {
	suffix, verb := "/disable", "disabled"
	if active {
		suffix, verb = "/enable", "enabled"
	}

	return s.deps.mutate(ctx, mutation{
		action:     "product." + strings.TrimPrefix(suffix, "/"),
		target:     productTarget(id),
		success:    fmt.Sprintf("Product %s", verb),
		fallback:   "Failed to update product status",
		invalidate: []cache.Key{ProductsKey()},
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodPatch, productPath(id, suffix), nil, nil, nil)
	})
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	return s.deps.mutate(ctx, mutation{
		action:     "product.delete",
		target:     productTarget(id),
		success:    "Product deleted successfully",
		fallback:   "Failed to delete product",
		invalidate: []cache.Key{ProductsKey(), cache.K(KeyDashboardSummary)},
	}, func(ctx context.Context) error {
		return s.deps.API.Do(ctx, http.MethodDelete, productPath(id, ""), nil, nil, nil)
	})
}

// UploadCSV bulk-creates products from a CSV file.
func (s *productService) UploadCSV(ctx context.Context, file apiclient.FormFile) (*CSVUploadResult, error) {
	if file.Field == "" {
		file.Field = "file"
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		return nil, &errors.ErrValidation{Field: "file", Message: "a .csv file is required"}
	}

	var result CSVUploadResult
	err := s.deps.mutate(ctx, mutation{
		action:     "product.upload_csv",
		target:     file.Filename,
		success:    "Products uploaded successfully",
		fallback:   "Failed to upload CSV",
		invalidate: []cache.Key{ProductsKey(), cache.K(KeyDashboardSummary)},
	}, func(ctx context.Context) error {
		return s.deps.API.Upload(ctx, "/admin/products/upload-csv", file, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
