package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go-pos-books/internal/ai"
	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/config"
	"go-pos-books/internal/inventory"
	"go-pos-books/internal/middleware"
	"go-pos-books/internal/reports"
	"go-pos-books/internal/sales"
	"go-pos-books/internal/settings"
	"go-pos-books/internal/validate"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler carries the services every route delegates to.
type Handler struct {
	DB                *gorm.DB
	Issuer            *auth.Issuer
	Sales             *sales.Service
	Inventory         *inventory.Service
	Reports           *reports.Service
	Settings          *settings.Store
	Agent             *ai.Agent
	Logger            *logrus.Logger
	AllowRegistration bool
}

// respondError renders err as {"error": message}. Failures that are not
// *apperr.Error are logged and reported as a bare 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		config.LogError(h.Logger, "handlers", c.FullPath(), "unexpected error", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	msg := appErr.Message
	if msg == "" {
		msg = http.StatusText(appErr.Status())
	}
	c.JSON(appErr.Status(), gin.H{"error": msg})
}

// bindJSON decodes the body into dst. On failure it writes the 400 and
// returns false.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.respondError(c, validate.Error(err))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	return false
}

func identity(c *gin.Context) auth.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return uint(id), nil
}
