package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

// writeError maps use case errors onto status codes and a JSON body.
func writeError(c *gin.Context, err error) {
	var (
		ve  *domain.ValidationError
		nf  *domain.NotFoundError
		ise *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": ve.Field, "message": ve.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "entity": nf.Entity, "id": nf.ID, "message": nf.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "insufficient_stock",
			"product_id": ise.ProductID,
			"sku":        ise.SKU,
			"requested":  ise.Requested,
			"available":  ise.Available,
			"message":    ise.Error(),
		})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "retryable": true, "message": err.Error()})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already_exists", "message": err.Error()})
	case errors.Is(err, domain.ErrReferenced):
		c.JSON(http.StatusConflict, gin.H{"error": "referenced", "message": err.Error()})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request", "message": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	default:
		logging.From(c).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
}
