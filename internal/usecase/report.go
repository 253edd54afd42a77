package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TopProduct struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type SalesSummary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int             `json:"totalOrders"`
	TopProduct   *TopProduct     `json:"topProduct"`
}

type summaryAlias SalesSummary

func (s SalesSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		summaryAlias
		TotalRevenue string `json:"totalRevenue"`
	}{summaryAlias(s), s.TotalRevenue.StringFixed(2)})
}

type ReportAggregator struct {
	orders   OrderRepo
	renderer DocumentRenderer
}

func NewReportAggregator(orders OrderRepo, renderer DocumentRenderer) *ReportAggregator {
	return &ReportAggregator{orders: orders, renderer: renderer}
}

// Summarize covers orders with from <= createdAt < to. The top product is the
// one with the most units sold; equal quantities go to the lowest product id.
func (r *ReportAggregator) Summarize(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	orders, err := r.orders.ListBetween(ctx, from, to)
	if err != nil {
		return SalesSummary{}, err
	}

	sum := SalesSummary{From: from, To: to, TotalRevenue: decimal.Zero, TotalOrders: len(orders)}
	qty := map[int64]*TopProduct{}
	for _, o := range orders {
		sum.TotalRevenue = sum.TotalRevenue.Add(o.TotalAmount)
		for _, l := range o.Lines() {
			tp, ok := qty[l.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: l.ProductID, Name: l.ProductName}
				qty[l.ProductID] = tp
			}
			tp.Quantity += l.Quantity
		}
	}

	for _, tp := range qty {
		best := sum.TopProduct
		if best == nil || tp.Quantity > best.Quantity ||
			(tp.Quantity == best.Quantity && tp.ProductID < best.ProductID) {
			sum.TopProduct = tp
		}
	}
	return sum, nil
}

func (r *ReportAggregator) SummaryPDF(ctx context.Context, from, to time.Time) ([]byte, error) {
	s, err := r.Summarize(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return r.renderer.RenderSalesReport(s)
}
