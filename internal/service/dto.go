package service

import (
	"github.com/shopspring/decimal"

	"github.com/jafarshop/groceryadmin/internal/domain"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// ProductInput is the Add Product form
type ProductInput struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description,omitempty"`
}

// CreateProductResult reports the create-then-image flow. ImageErr is set when
// the product was created but its image upload failed.
type CreateProductResult struct {
	Product  *domain.Product
	ImageErr error
}

// CSVUploadResult is the backend summary of a bulk product upload
type CSVUploadResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// StatusUpdateRequest is the body of PATCH /admin/orders/{id}/status
type StatusUpdateRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// OrderFilter is the server-side filter state of the Orders screen
type OrderFilter struct {
	Page   int
	Size   int
	Status domain.OrderStatus
	Phone  string
	From   string
	To     string
}

// AssignResult is the outcome for one order of a bulk assignment
type AssignResult struct {
	OrderID int64
	Err     error
}

// BulkAssignResult itemizes a bulk assignment
type BulkAssignResult struct {
	Phone   string
	Results []AssignResult
}

func (r BulkAssignResult) Succeeded() []int64 {
	var ids []int64
	for _, res := range r.Results {
		if res.Err == nil {
			ids = append(ids, res.OrderID)
		}
	}
	return ids
}

func (r BulkAssignResult) Failed() []int64 {
	var ids []int64
	for _, res := range r.Results {
		if res.Err != nil {
			ids = append(ids, res.OrderID)
		}
	}
	return ids
}

func (r BulkAssignResult) OK() bool {
	return len(r.Failed()) == 0
}
