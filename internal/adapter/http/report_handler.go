package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

type ReportHandler struct {
	reports *usecase.ReportAggregator
	loc     *time.Location
}

func NewReportHandler(reports *usecase.ReportAggregator, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, loc: loc}
}

// dayRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD as whole days: [from 00:00, to+1 00:00).
func (h *ReportHandler) dayRange(c *gin.Context) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidation("from", "expected YYYY-MM-DD")
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidation("to", "expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, domain.NewValidation("to", "must not be before from")
	}
	return from, to.AddDate(0, 0, 1), nil
}

// GET /api/reports/sales
func (h *ReportHandler) Sales(c *gin.Context) {
	from, to, err := h.dayRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.reports.Summarize(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GET /api/reports/sales.pdf
func (h *ReportHandler) SalesPDF(c *gin.Context) {
	from, to, err := h.dayRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.reports.SummaryPDF(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=sales-report.pdf")
	c.Data(http.StatusOK, "application/pdf", b)
}
