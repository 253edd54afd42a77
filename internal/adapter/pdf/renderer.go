package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/usecase"
)

// Renderer draws invoices and sales reports on A4 pages.
type Renderer struct {
	shop string
	loc  *time.Location
}

// NewRenderer prints timestamps in timezone, falling back to UTC when unknown.
func NewRenderer(shopName, timezone string) *Renderer {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Renderer{shop: shopName, loc: loc}
}

func (r *Renderer) stamp(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02 15:04 MST")
}

func (r *Renderer) newDoc(title string) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator(r.shop, true)
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	return doc
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) RenderInvoice(o *domain.Order, c *domain.Customer) ([]byte, error) {
	doc := r.newDoc(r.shop + " - Invoice")

	doc.CellFormat(0, 6, "Order #"+strconv.FormatInt(o.ID, 10)+"  ("+o.Number+")", "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Customer: "+c.Name, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Date: "+r.stamp(o.CreatedAt), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Status: "+string(o.Status), "", 1, "L", false, 0, "")
	doc.Ln(4)

	widths := []float64{80, 30, 20, 30, 30}
	doc.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Product", "SKU", "Qty", "Unit price", "Subtotal"} {
		doc.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 11)
	for _, l := range o.Lines() {
		doc.CellFormat(widths[0], 7, l.ProductName, "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 7, l.SKU, "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[2], 7, strconv.Itoa(l.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 7, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[4], 7, l.Subtotal.StringFixed(2), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total", "1", 0, "R", false, 0, "")
	doc.CellFormat(widths[4], 8, o.TotalAmount.StringFixed(2), "1", 1, "R", false, 0, "")
	return output(doc)
}

func (r *Renderer) RenderSalesReport(s usecase.SalesSummary) ([]byte, error) {
	doc := r.newDoc(r.shop + " - Sales Report")

	doc.CellFormat(0, 6, "From: "+r.stamp(s.From), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "To: "+r.stamp(s.To), "", 1, "L", false, 0, "")
	doc.Ln(4)

	top := "-"
	if s.TopProduct != nil {
		top = fmt.Sprintf("%s (%d units)", s.TopProduct.Name, s.TopProduct.Quantity)
	}
	rows := [][2]string{
		{"Total Orders", strconv.Itoa(s.TotalOrders)},
		{"Total Revenue", s.TotalRevenue.StringFixed(2)},
		{"Top Product", top},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(50, 8, row[0], "1", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(70, 8, row[1], "1", 1, "L", false, 0, "")
	}
	return output(doc)
}

var _ usecase.DocumentRenderer = (*Renderer)(nil)
