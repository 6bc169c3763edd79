package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/notify"
	"github.com/jafarshop/groceryadmin/internal/screens"
	"github.com/jafarshop/groceryadmin/internal/service"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

// AuditReader lists recorded mutations.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

// Console is what the console handlers work with.
type Console struct {
	Services *service.Services
	Screens  *screens.Config
	Notes    *notify.Recorder
	Audit    AuditReader // nil when auditing is disabled
}

// writeError maps a service error to a console response. A backend 401 has
// already ended the session; the front end is told where to go.
func writeError(c *gin.Context, err error, logger *zap.Logger) {
	var (
		validation *errors.ErrValidation
		transition *errors.ErrInvalidStateTransition
		notFound   *errors.ErrNotFound
		apiErr     *apiclient.APIError
	)

	switch {
	case apiclient.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired", "redirect": apiclient.LoginRoute})
	case stderrors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
	case stderrors.Is(err, service.ErrNoChanges):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stderrors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.As(err, &apiErr) && apiErr.IsValidation():
		c.JSON(apiErr.StatusCode, gin.H{"error": apiclient.MessageOf(err, service.GenericError)})
	default:
		logger.Error("Console request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": apiclient.MessageOf(err, service.GenericError)})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// HandleNotifications handles GET /notifications
func HandleNotifications(console *Console) gin.HandlerFunc {
	return func(c *gin.Context) {
		notes := console.Notes.Drain()
		if notes == nil {
			notes = []notify.Notification{}
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notes})
	}
}
