package domain

// OrderStatus represents the delivery status of a customer order
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "ORDER_PLACED"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists statuses in board order, as shown by the status tabs
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusPacked,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPlaced,
		OrderStatusPacked,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPlaced:
		return newStatus == OrderStatusPacked || newStatus == OrderStatusCancelled
	case OrderStatusPacked:
		return newStatus == OrderStatusOutForDelivery || newStatus == OrderStatusCancelled
	case OrderStatusOutForDelivery:
		return newStatus == OrderStatusDelivered || newStatus == OrderStatusCancelled
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// Next returns the status an order advances to, and false for terminal states
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPlaced:
		return OrderStatusPacked, true
	case OrderStatusPacked:
		return OrderStatusOutForDelivery, true
	case OrderStatusOutForDelivery:
		return OrderStatusDelivered, true
	default:
		return "", false
	}
}

// CanCancel checks if the order may still be cancelled
func (s OrderStatus) CanCancel() bool {
	return s.CanTransitionTo(OrderStatusCancelled)
}

// IssueStatus represents the state of a support ticket
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusRejected   IssueStatus = "REJECTED"
)

func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusRejected:
		return true
	default:
		return false
	}
}

// CanAcknowledge is true only for tickets nobody has picked up yet
func (s IssueStatus) CanAcknowledge() bool {
	return s == IssueStatusOpen
}

// CanResolve is true while the ticket is still open or being worked
func (s IssueStatus) CanResolve() bool {
	return s == IssueStatusOpen || s == IssueStatusInProgress
}

// Severity of a support ticket
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// SuggestionStatus of a customer feedback entry
type SuggestionStatus string

const (
	SuggestionStatusOpen     SuggestionStatus = "OPEN"
	SuggestionStatusInReview SuggestionStatus = "IN_REVIEW"
	SuggestionStatusResolved SuggestionStatus = "RESOLVED"
	SuggestionStatusClosed   SuggestionStatus = "CLOSED"
)

func (s SuggestionStatus) IsValid() bool {
	switch s {
	case SuggestionStatusOpen, SuggestionStatusInReview, SuggestionStatusResolved, SuggestionStatusClosed:
		return true
	default:
		return false
	}
}

// StockStatus is derived client-side from a product's stock count
type StockStatus string

const (
	StockStatusIn  StockStatus = "IN"
	StockStatusLow StockStatus = "LOW"
	StockStatusOut StockStatus = "OUT"
)

func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusIn, StockStatusLow, StockStatusOut:
		return true
	default:
		return false
	}
}

// Role of the signed-in operator
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDelivery Role = "DELIVERY"
)
