package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/groceryadmin/internal/domain"
)

// IssueActionRequest carries the ticket status the operator saw
type IssueActionRequest struct {
	Status domain.IssueStatus `json:"status" binding:"required"`
}

// DashboardResponse holds the three dashboard tiles
type DashboardResponse struct {
	Summary    domain.DashboardSummary `json:"summary"`
	Sales      []domain.DailySalesData `json:"sales_last_7_days"`
	Comparison domain.SalesComparison  `json:"sales_comparison"`
}

// AuditEntryResponse is one audit log row
type AuditEntryResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at"`
}

// HandleListFeedback handles GET /feedback
func HandleListFeedback(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := console.Services.Feedback.List(c.Request.Context(),
			queryInt(c, "page", 0), console.Screens.Feedback.PageSize, c.Query("phone"))
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// HandleListIssues handles GET /issues
func HandleListIssues(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.IssueStatus(c.Query("status"))
		if status != "" && !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		severity := domain.Severity(c.Query("severity"))
		if severity != "" && !severity.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
			return
		}

		page, err := console.Services.Issues.List(c.Request.Context(),
			queryInt(c, "page", 0), console.Screens.Issues.PageSize, status, severity)
		if err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// HandleAcknowledgeIssue handles POST /issues/:id/acknowledge
func HandleAcknowledgeIssue(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, req, ok := bindIssueAction(c)
		if !ok {
			return
		}

		if err := console.Services.Issues.Acknowledge(c.Request.Context(), id, req.Status); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.IssueStatusInProgress})
	}
}

// HandleResolveIssue handles POST /issues/:id/resolve
func HandleResolveIssue(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, req, ok := bindIssueAction(c)
		if !ok {
			return
		}

		if err := console.Services.Issues.Resolve(c.Request.Context(), id, req.Status); err != nil {
			writeError(c, err, logger)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.IssueStatusResolved})
	}
}

func bindIssueAction(c *gin.Context) (int64, IssueActionRequest, bool) {
	var req IssueActionRequest
	id, ok := parseID(c)
	if !ok {
		return 0, req, false
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": err.Error(),
		})
		return 0, req, false
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return 0, req, false
	}
	return id, req, true
}

// HandleDashboard handles GET /dashboard
// The three tiles load in parallel; any failure fails the request.
func HandleDashboard(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var resp DashboardResponse
		g, ctx := errgroup.WithContext(c.Request.Context())

		g.Go(func() error {
			v, err := console.Services.Dashboard.Summary(ctx)
			resp.Summary = v
			return err
		})
		g.Go(func() error {
			v, err := console.Services.Dashboard.SalesLast7Days(ctx)
			resp.Sales = v
			return err
		})
		g.Go(func() error {
			v, err := console.Services.Dashboard.SalesComparison(ctx)
			resp.Comparison = v
			return err
		})

		if err := g.Wait(); err != nil {
			writeError(c, err, logger)
			return
		}
		if resp.Sales == nil {
			resp.Sales = []domain.DailySalesData{}
		}

		c.JSON(http.StatusOK, resp)
	}
}

// HandleListAudit handles GET /audit
func HandleListAudit(console *Console, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if console.Audit == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "audit log is disabled"})
			return
		}

		entries, err := console.Audit.ListRecent(c.Request.Context(), queryInt(c, "limit", 50))
		if err != nil {
			logger.Error("Failed to list audit log", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		resp := make([]AuditEntryResponse, len(entries))
		for i, e := range entries {
			resp[i] = AuditEntryResponse{
				ID:        e.ID,
				Action:    e.Action,
				Target:    e.Target,
				Outcome:   e.Outcome,
				Message:   e.Message,
				Role:      e.Role,
				CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}

		c.JSON(http.StatusOK, gin.H{"entries": resp})
	}
}
