package templates

import (
	"encoding/json"

	"sales-dashboard/internal/models"
)

const (
	dashboardTitle    = "Sales Dashboard"
	dashboardSubtitle = "Revenue, profit and order performance by region and category"
)

// Signal names match the json tags of models.FilterSignals.
const (
	regionSignal   = "regionFilter"
	categorySignal = "categoryFilter"
	chartSignal    = "chartFilter"
)

// filterSignals is the initial datastar signal store. Without options the
// page holds no filter state and the server applies its defaults.
func filterSignals(options *models.FilterOptions) string {
	if options == nil {
		return "{}"
	}
	b, err := json.Marshal(options.Signals())
	if err != nil {
		return "{}"
	}
	return string(b)
}

func chartNames(kinds []models.ChartKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}
