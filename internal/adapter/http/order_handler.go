package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type OrderHandler struct {
	placer   *usecase.OrderPlacer
	invoices *usecase.Invoices
	timeout  time.Duration
}

func NewOrderHandler(placer *usecase.OrderPlacer, invoices *usecase.Invoices, timeout time.Duration) *OrderHandler {
	return &OrderHandler{placer: placer, invoices: invoices, timeout: timeout}
}

type placeOrderReq struct {
	CustomerID int64               `json:"customerId" binding:"required"`
	Items      []usecase.LineInput `json:"items"`
}

// PlaceOrder handler: translate to use case input
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // opt-in dedupe of retried requests

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	o, err := h.placer.Place(ctx, usecase.PlaceOrderInput{
		CustomerID:     req.CustomerID,
		Lines:          req.Items,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/orders/"+strconv.FormatInt(o.ID, 10))
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	o, err := h.placer.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /api/orders/:id/invoice.pdf
func (h *OrderHandler) Invoice(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.invoices.Invoice(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=invoice-"+strconv.FormatInt(id, 10)+".pdf")
	c.Data(http.StatusOK, "application/pdf", b)
}
