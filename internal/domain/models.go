package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an inventory item sold in the store
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"` // e.g. "500 g", "1 kg"
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Active      bool            `json:"active"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Order represents a customer order as listed on the admin boards
type Order struct {
	ID                  int64           `json:"id"`
	CustomerName        string          `json:"customerName"`
	CustomerPhone       string          `json:"customerPhone"`
	Address             string          `json:"address"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	Status              OrderStatus     `json:"status"`
	DeliveryPersonName  string          `json:"deliveryPersonName,omitempty"`
	DeliveryPersonPhone string          `json:"deliveryPersonPhone,omitempty"`
	CreatedAt           string          `json:"createdAt"`
	UpdatedAt           string          `json:"updatedAt,omitempty"`
}

// OrderItem is a line of an order
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"total"`
}

// OrderDetails is the response of the order details endpoint
type OrderDetails struct {
	Order
	Items []OrderItem `json:"items"`
}

// TimelineEvent records one status change of an order
type TimelineEvent struct {
	Status    OrderStatus `json:"status"`
	Timestamp string      `json:"timestamp"`
}

// Suggestion is a piece of customer feedback
type Suggestion struct {
	ID        int64            `json:"id"`
	UserPhone string           `json:"userPhone"`
	Message   string           `json:"message"`
	Status    SuggestionStatus `json:"status"`
	CreatedAt string           `json:"createdAt"`
}

// Issue is a customer support ticket raised against an order
type Issue struct {
	ID            int64       `json:"id"`
	OrderID       int64       `json:"orderId"`
	CustomerPhone string      `json:"customerPhone"`
	IssueType     string      `json:"issueType"`
	Severity      Severity    `json:"severity"`
	Status        IssueStatus `json:"status"`
	Description   string      `json:"description"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt,omitempty"`
}

// DashboardSummary holds the overview tiles
type DashboardSummary struct {
	TotalOrders     int64           `json:"totalOrders"`
	PendingOrders   int64           `json:"pendingOrders"`
	DeliveredOrders int64           `json:"deliveredOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalProducts   int64           `json:"totalProducts"`
	LowStockCount   int64           `json:"lowStockCount"`
	OpenIssues      int64           `json:"openIssues"`
}

// DailySalesData is one bar of the seven day sales chart
type DailySalesData struct {
	Date       string          `json:"date"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"orderCount"`
}

// SalesComparison compares today's sales against yesterday's
type SalesComparison struct {
	TodayRevenue     decimal.Decimal `json:"todayRevenue"`
	YesterdayRevenue decimal.Decimal `json:"yesterdayRevenue"`
	TodayOrders      int64           `json:"todayOrders"`
	YesterdayOrders  int64           `json:"yesterdayOrders"`
	PercentageChange float64         `json:"percentageChange"`
}

// AuditEntry records the outcome of an admin mutation
type AuditEntry struct {
	ID        string
	Action    string
	Target    string
	Outcome   string
	Message   string
	Role      string
	CreatedAt time.Time
}

const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
	AuditOutcomePartial = "partial"
)
