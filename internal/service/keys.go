package service

import (
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/domain"
)

// Query key heads. Invalidating a head refreshes every page and filter of it.
const (
	KeyProducts         = "products"
	KeyOrders           = "orders"
	KeyOrderDetails     = "order-details"
	KeyOrderTimeline    = "order-timeline"
	KeyDeliveryOrders   = "delivery-orders"
	KeySuggestions      = "suggestions"
	KeyIssues           = "issues"
	KeyDashboardSummary = "dashboard-summary"
	KeySales7Days       = "sales-7-days"
	KeySalesComparison  = "sales-comparison"
)

func ProductsKey() cache.Key {
	return cache.K(KeyProducts)
}

func OrdersKey(f OrderFilter) cache.Key {
	return cache.K(KeyOrders, f.Page, f.Size, string(f.Status), f.Phone, f.From, f.To)
}

func OrderDetailsKey(id int64) cache.Key {
	return cache.K(KeyOrderDetails, id)
}

func OrderTimelineKey(id int64) cache.Key {
	return cache.K(KeyOrderTimeline, id)
}

func DeliveryOrdersKey(page, size int, status domain.OrderStatus) cache.Key {
	return cache.K(KeyDeliveryOrders, page, size, string(status))
}

func SuggestionsKey(page, size int, phone string) cache.Key {
	return cache.K(KeySuggestions, page, size, phone)
}

func IssuesKey(page, size int, status domain.IssueStatus, severity domain.Severity) cache.Key {
	return cache.K(KeyIssues, page, size, string(status), string(severity))
}

// orderKeys are the reads affected by any change to order id.
func orderKeys(id int64) []cache.Key {
	return []cache.Key{
		cache.K(KeyOrders),
		cache.K(KeyDeliveryOrders),
		OrderDetailsKey(id),
		OrderTimelineKey(id),
		cache.K(KeyDashboardSummary),
	}
}
