package services

import (
	"math"
	"slices"
	"strings"

	"sales-dashboard/internal/models"
)

// Summarize computes the KPI totals and one summary row per category present
// in the view, sorted by category name. Missing measures are left out of
// sums but the row still counts toward TotalOrders.
func Summarize(view models.FilteredView) (models.KPITotals, []models.CategorySummary) {
	totals := models.KPITotals{TotalOrders: view.Len()}
	groups := make(map[string]*models.CategorySummary)

	for _, r := range view.Records {
		totals.TotalRevenue += valueOrZero(r.Revenue)
		totals.TotalProfit += valueOrZero(r.Profit)

		g := groups[r.Category]
		if g == nil {
			g = &models.CategorySummary{Category: r.Category}
			groups[r.Category] = g
		}
		if r.OrderID != "" {
			g.Orders++
		}
		g.Quantity += valueOrZero(r.Quantity)
		g.Revenue += valueOrZero(r.Revenue)
		g.Profit += valueOrZero(r.Profit)
	}

	summary := make([]models.CategorySummary, 0, len(groups))
	for _, g := range groups {
		g.ProfitMarginPct = ProfitMargin(g.Profit, g.Revenue)
		summary = append(summary, *g)
	}
	slices.SortFunc(summary, func(a, b models.CategorySummary) int {
		return strings.Compare(a.Category, b.Category)
	})

	return totals, summary
}

// ProfitMargin returns profit/revenue as a percentage rounded to two
// decimals, or a missing measure when revenue is zero.
func ProfitMargin(profit, revenue float64) models.Measure {
	if revenue == 0 {
		return models.Missing()
	}
	return models.Value(RoundTo2(profit / revenue * 100))
}

func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valueOrZero(m models.Measure) float64 {
	if !m.Valid {
		return 0
	}
	return m.Value
}
