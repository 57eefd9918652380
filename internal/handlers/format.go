package handlers

import (
	"github.com/dustin/go-humanize"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const (
	noData       = "n/a"
	amountFormat = "#,###.##"
)

// formatAmount renders v with two decimals and comma thousands separators.
// Values that round to zero lose their sign.
func formatAmount(v float64) string {
	return humanize.FormatFloat(amountFormat, services.RoundTo2(v))
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func formatMargin(m models.Measure) string {
	if !m.Valid {
		return noData
	}
	return formatAmount(m.Value) + "%"
}
