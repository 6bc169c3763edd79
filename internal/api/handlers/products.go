package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/filter"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// maxUploadSize bounds image and CSV uploads
const maxUploadSize = 10 << 20

// InventoryResponse is one page of the filtered catalogue
type InventoryResponse struct {
	Products      []domain.Product `json:"products"`
	Page          int              `json:"page"`
	TotalPages    int              `json:"total_pages"`
	TotalElements int              `json:"total_elements"`
	Categories    []string         `json:"categories"`
	LowStock      int              `json:"low_stock"`
	OutOfStock    int              `json:"out_of_stock"`
}

// HandleListProducts handles GET /products
// Filters are applied to the cached catalogue; query params: search, category,
// price (bracket label), stock, page.
func HandleListProducts(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := console.Services.Products.List(c.Request.Context())
		if err != nil {
			writeError(c, err, logger)
			return
		}

		cfg := console.Screens.Inventory
		criteria := filter.ProductCriteria{
			Search:     c.Query("search"),
			Category:   c.Query("category"),
			PriceRange: c.Query("price"),
			Stock:      domain.StockStatus(c.Query("stock")),
			Threshold:  cfg.LowStockThreshold,
		}
		if criteria.Stock != "" && !criteria.Stock.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stock filter"})
			return
		}
		if _, ok := filter.PriceRangeByLabel(criteria.PriceRange); criteria.PriceRange != "" && !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price range"})
			return
		}

		page := filter.Paginate(filter.Products(products, criteria), queryInt(c, "page", 0), cfg.PageSize)
		counts := filter.CountByStock(products, criteria.Threshold)

		items := page.Items
		if items == nil {
			items = []domain.Product{}
		}
		c.JSON(http.StatusOK, InventoryResponse{
			Products:      items,
			Page:          page.Page,
			TotalPages:    page.TotalPages,
			TotalElements: page.TotalElements,
			Categories:    filter.Categories(products),
			LowStock:      counts[domain.StockStatusLow],
			OutOfStock:    counts[domain.StockStatusOut],
		})
	}
}

// HandleCreateProduct handles POST /products
// A multipart body may carry an "image" part, uploaded after the product is created.
func HandleCreateProduct(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() == "multipart/form-data" {
			createWithImage(c, console, logger)
			return
		}

		var in service.ProductInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		product, err := console.Services.Products.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusCreated, product)
	}
}

func createWithImage(c *gin.Context, console *Console, logger *zap.Logger) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	in, err := productForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := formFile(c, "image")
	if err != nil && err != http.ErrMissingFile {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
		return
	}

	result, err := console.Services.Products.CreateWithImage(c.Request.Context(), in, image)
	if err != nil {
		writeError(c, err, logger)
		return
	}

	resp := gin.H{"product": result.Product}
	if result.ImageErr != nil {
		resp["image_error"] = apiclient.MessageOf(result.ImageErr, "image upload failed")
	}
	c.JSON(http.StatusCreated, resp)
}

func productForm(c *gin.Context) (service.ProductInput, error) {
	in := service.ProductInput{
		Name:        c.PostForm("name"),
		Category:    c.PostForm("category"),
		Unit:        c.PostForm("unit"),
		Description: c.PostForm("description"),
	}

	if v := c.PostForm("price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return in, err
		}
		in.Price = price
	}
	if v := c.PostForm("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return in, err
		}
		in.Stock = stock
	}
	return in, nil
}

// formFile reads a multipart part into memory. It returns (nil, http.ErrMissingFile)
// when the part is absent.
func formFile(c *gin.Context, field string) (*apiclient.FormFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &apiclient.FormFile{Field: field, Filename: header.Filename, Content: bytes.NewReader(content)}, nil
}

// HandleUpdateProduct handles PUT /products/:id
// The body is the full edit form; only fields that differ from the cached
// product are sent to the backend.
func HandleUpdateProduct(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var edited service.ProductInput
		if err := c.ShouldBindJSON(&edited); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		current, err := console.Services.Products.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		patch := service.DiffProduct(*current, edited)
		if patch.IsEmpty() {
			c.JSON(http.StatusOK, gin.H{"changed": []string{}})
			return
		}

		if err := console.Services.Products.Update(c.Request.Context(), id, patch); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"changed": patch.Fields()})
	}
}

// HandleUploadProductImage handles POST /products/:id/image
func HandleUploadProductImage(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		image, err := formFile(c, "image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
			return
		}

		if err := console.Services.Products.UploadImage(c.Request.Context(), id, *image); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "uploaded"})
	}
}

// HandleSetProductActive handles POST /products/:id/enable and /products/:id/disable
func HandleSetProductActive(console *Console, active bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if err := console.Services.Products.SetActive(c.Request.Context(), id, active); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "active": active})
	}
}

// HandleDeleteProduct handles DELETE /products/:id
func HandleDeleteProduct(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if err := console.Services.Products.Delete(c.Request.Context(), id); err != nil {
			writeError(c, err, logger)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleUploadProductsCSV handles POST /products/csv
func HandleUploadProductsCSV(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		file, err := formFile(c, "file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		result, err := console.Services.Products.UploadCSV(c.Request.Context(), *file)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
