// Package dashboard turns the backend's pre-aggregated statistics into
// metric cards and simple bar widgets. No aggregate is computed locally.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/core/formatter"
)

// Source is the backend surface the dashboard reads.
type Source interface {
	Dashboard(ctx context.Context) (map[string]any, error)
	SalesReport(ctx context.Context, start, end time.Time) (map[string]any, error)
}

// Options configures a Service.
type Options struct {
	CurrencySymbol string
	Logger         zerolog.Logger
}

// Service loads dashboard data.
type Service struct {
	source Source
	symbol string
	logger zerolog.Logger
}

// NewService creates a dashboard service.
func NewService(source Source, opts Options) *Service {
	symbol := opts.CurrencySymbol
	if symbol == "" {
		symbol = formatter.DefaultCells.Symbol
	}
	return &Service{source: source, symbol: symbol, logger: opts.Logger}
}

// Stats is the summary shown on the dashboard. Missing numbers are zero
// and missing lists are empty.
type Stats struct {
	TotalSales         float64
	TotalInventory     float64
	PendingInvoices    float64
	LowStock           float64
	TopSellingItems    []Point
	RecentTransactions []map[string]any

	symbol string
}

// Card is one labelled metric.
type Card struct {
	Title string
	Value string
	Icon  string
}

// Point is one labelled value of a chart series.
type Point struct {
	Label string
	Value float64
}

// Load fetches the statistics. On failure it returns zero-valued Stats
// along with the error so the cards can still render.
func (s *Service) Load(ctx context.Context) (Stats, error) {
	stats := Stats{
		TopSellingItems:    []Point{},
		RecentTransactions: []map[string]any{},
		symbol:             s.symbol,
	}
	data, err := s.source.Dashboard(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dashboard stats unavailable")
		return stats, err
	}

	stats.TotalSales = num(data, "totalSales")
	stats.TotalInventory = num(data, "totalInventory")
	stats.PendingInvoices = num(data, "pendingInvoices")
	stats.LowStock = num(data, "lowStock")
	stats.TopSellingItems = series(data["topSellingItems"], "name", "quantity")
	stats.RecentTransactions = objects(data["recentTransactions"])
	return stats, nil
}

// Cards returns the fixed metric cards in display order.
func (st Stats) Cards() []Card {
	symbol := st.symbol
	if symbol == "" {
		symbol = formatter.DefaultCells.Symbol
	}
	return []Card{
		{Title: "Total Sales", Value: formatter.CurrencyString(st.TotalSales, symbol), Icon: "dollar"},
		{Title: "Total Inventory", Value: formatter.Number(st.TotalInventory) + " items", Icon: "box"},
		{Title: "Pending Invoices", Value: formatter.Number(st.PendingInvoices), Icon: "file"},
		{Title: "Low Stock Items", Value: formatter.Number(st.LowStock), Icon: "alert"},
	}
}

// TopItems returns the top-selling items as bars scaled to the largest.
func (st Stats) TopItems() []Bar {
	return Bars(st.TopSellingItems, formatter.Number)
}

// Transaction is one row of the recent transactions table.
type Transaction struct {
	Invoice string
	Amount  string
	Date    string
}

// Transactions formats the recent transactions.
func (st Stats) Transactions() []Transaction {
	cells := formatter.NewCells(st.symbol)
	out := make([]Transaction, 0, len(st.RecentTransactions))
	for _, tx := range st.RecentTransactions {
		out = append(out, Transaction{
			Invoice: formatter.Text(first(tx, "invoice_number", "invoiceNumber", "id")),
			Amount:  cells.Currency(first(tx, "total_amount", "totalAmount", "amount")),
			Date:    dateText(cells, tx["date"]),
		})
	}
	return out
}

// Report is the sales report for a date range.
type Report struct {
	Start             time.Time
	End               time.Time
	TotalSales        float64
	TotalItems        float64
	AverageOrderValue float64
	TopProducts       []Point
	SalesByDay        []Point

	symbol string
}

// ErrInvalidRange is returned when a report ends before it starts.
var ErrInvalidRange = errors.New("report end date is before start date")

// SalesReport fetches the sales report for [start, end].
func (s *Service) SalesReport(ctx context.Context, start, end time.Time) (Report, error) {
	if end.Before(start) {
		return Report{}, ErrInvalidRange
	}
	data, err := s.source.SalesReport(ctx, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("sales report: %w", err)
	}

	r := Report{
		Start:             start,
		End:               end,
		TotalSales:        num(data, "totalSales"),
		TotalItems:        num(data, "totalItems"),
		AverageOrderValue: num(data, "averageOrderValue"),
		TopProducts:       series(data["topProducts"], "name", "quantity"),
		SalesByDay:        series(data["salesByDay"], "date", "amount"),
		symbol:            s.symbol,
	}
	sort.SliceStable(r.TopProducts, func(i, j int) bool {
		return r.TopProducts[i].Value > r.TopProducts[j].Value
	})
	sort.SliceStable(r.SalesByDay, func(i, j int) bool {
		return r.SalesByDay[i].Label < r.SalesByDay[j].Label
	})
	return r, nil
}

// Cards returns the report's summary cards.
func (r Report) Cards() []Card {
	return []Card{
		{Title: "Total Sales", Value: formatter.CurrencyString(r.TotalSales, r.symbol), Icon: "dollar"},
		{Title: "Total Items Sold", Value: formatter.Number(r.TotalItems), Icon: "box"},
		{Title: "Average Order Value", Value: formatter.CurrencyString(r.AverageOrderValue, r.symbol), Icon: "chart"},
	}
}

// DailySales returns sales per day as bars, oldest first.
func (r Report) DailySales() []Bar {
	return Bars(r.SalesByDay, func(f float64) string { return formatter.CurrencyString(f, r.symbol) })
}

// Products returns the top products as bars, best first.
func (r Report) Products() []Bar {
	return Bars(r.TopProducts, formatter.Number)
}

// DefaultRange is the last 30 days ending today.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return end.AddDate(0, 0, -30), end
}

func dateText(cells formatter.Cells, v any) string {
	if _, ok := formatter.ToTime(v); ok {
		return cells.Date(v)
	}
	return formatter.Text(v)
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
