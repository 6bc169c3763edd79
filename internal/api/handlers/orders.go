package handlers

import (
	stderrors "errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/service"
)

// AssignRequest carries the delivery person's phone
type AssignRequest struct {
	DeliveryPhone string `json:"delivery_phone" binding:"required"`
}

// BulkAssignRequest assigns several orders at once
type BulkAssignRequest struct {
	OrderIDs      []int64 `json:"order_ids" binding:"required"`
	DeliveryPhone string  `json:"delivery_phone" binding:"required"`
}

// AssignResultResponse is the outcome for one order of a bulk assignment
type AssignResultResponse struct {
	OrderID int64  `json:"order_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// HandleListOrders handles GET /orders
// Query params: page, size, status, phone, from, to (YYYY-MM-DD).
func HandleListOrders(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := service.OrderFilter{
			Page:   queryInt(c, "page", 0),
			Size:   queryInt(c, "size", console.Screens.Orders.PageSize),
			Status: domain.OrderStatus(c.Query("status")),
			Phone:  c.Query("phone"),
			From:   c.Query("from"),
			To:     c.Query("to"),
		}
		if f.Status != "" && !f.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		page, err := console.Services.Orders.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// HandleListDeliveryOrders handles GET /delivery
// The board shows PACKED orders unless a status is given.
func HandleListDeliveryOrders(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.OrderStatus(c.DefaultQuery("status", string(domain.OrderStatusPacked)))
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		page, err := console.Services.Orders.Delivery(c.Request.Context(), queryInt(c, "page", 0), console.Screens.Delivery.PageSize, status)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// HandleGetOrder handles GET /orders/:id
func HandleGetOrder(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		details, err := console.Services.Orders.Details(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, details)
	}
}

// HandleGetOrderTimeline handles GET /orders/:id/timeline
func HandleGetOrderTimeline(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		events, err := console.Services.Orders.Timeline(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}
		if events == nil {
			events = []domain.TimelineEvent{}
		}

		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// HandleGetReceipt handles GET /orders/:id/receipt
func HandleGetReceipt(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		data, contentType, err := console.Services.Orders.Receipt(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}
		if contentType == "" {
			contentType = "application/pdf"
		}

		c.Data(http.StatusOK, contentType, data)
	}
}

// HandleAdvanceOrder handles POST /orders/:id/advance
// The current status is read from the order details, not trusted from the caller.
func HandleAdvanceOrder(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		details, err := console.Services.Orders.Details(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		next, err := console.Services.Orders.AdvanceStatus(c.Request.Context(), id, details.Status)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "status": next})
	}
}

// HandleCancelOrder handles POST /orders/:id/cancel
func HandleCancelOrder(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		details, err := console.Services.Orders.Details(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		if err := console.Services.Orders.Cancel(c.Request.Context(), id, details.Status); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.OrderStatusCancelled})
	}
}

// HandleAssignOrder handles POST /orders/:id/assign
func HandleAssignOrder(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		if err := console.Services.Orders.Assign(c.Request.Context(), id, req.DeliveryPhone); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "delivery_phone": req.DeliveryPhone})
	}
}

// HandleBulkAssign handles POST /delivery/assign
// Responds 200 when every order was assigned and 207 with the per-order
// results otherwise.
func HandleBulkAssign(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkAssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		ids := append([]int64(nil), req.OrderIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		result, err := console.Services.Orders.BulkAssign(c.Request.Context(), ids, req.DeliveryPhone)
		if err != nil && !stderrors.Is(err, service.ErrBulkAssignFailed) {
			writeError(c, err, logger)
			return
		}
		if err != nil && apiclient.IsUnauthorized(err) {
			writeError(c, err, logger)
			return
		}

		results := make([]AssignResultResponse, len(result.Results))
		for i, r := range result.Results {
			results[i] = AssignResultResponse{OrderID: r.OrderID, OK: r.Err == nil}
			if r.Err != nil {
				results[i].Error = apiclient.MessageOf(r.Err, "assignment failed")
			}
		}

		status := http.StatusOK
		if !result.OK() {
			status = http.StatusMultiStatus
		}
		c.JSON(status, gin.H{
			"delivery_phone": result.Phone,
			"results":        results,
		})
	}
}
