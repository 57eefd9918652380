package models

import (
	"encoding/json"
	"fmt"
)

type ChartKind int

const (
	MonthlyRevenueTrend ChartKind = iota + 1
	MonthlyProfitArea
	RevenueProfitBubble
	ProfitViolinByCategory
	QuantityStripByRegion
	ProfitBoxPlot
	Scatter3D
	RevenueQuantityScatter
	ProfitHeatmap
	QuantityAreaTrend
	RevenueProfitDensity
)

var chartKindNames = map[ChartKind]string{
	MonthlyRevenueTrend:    "Monthly Revenue Trend",
	MonthlyProfitArea:      "Monthly Profit Area",
	RevenueProfitBubble:    "Revenue vs Profit Bubble",
	ProfitViolinByCategory: "Profit Violin by Category",
	QuantityStripByRegion:  "Quantity Strip by Region",
	ProfitBoxPlot:          "Profit Box Plot",
	Scatter3D:              "3D Scatter",
	RevenueQuantityScatter: "Revenue vs Quantity Scatter",
	ProfitHeatmap:          "Profit Heatmap",
	QuantityAreaTrend:      "Quantity Area Trend",
	RevenueProfitDensity:   "Revenue vs Profit Density",
}

// ChartKinds lists the catalog in declaration order.
func ChartKinds() []ChartKind {
	kinds := make([]ChartKind, 0, len(chartKindNames))
	for k := MonthlyRevenueTrend; k <= RevenueProfitDensity; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k ChartKind) String() string {
	if name, ok := chartKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ChartKind(%d)", int(k))
}

func (k ChartKind) Valid() bool {
	_, ok := chartKindNames[k]
	return ok
}

func (k ChartKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ChartKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	kind, ok := LookupChartKind(name)
	if !ok {
		return fmt.Errorf("unknown chart kind %q", name)
	}
	*k = kind
	return nil
}

// LookupChartKind resolves a catalog name. "Profit Heatmap (Month vs Category)"
// is accepted as an alias for ProfitHeatmap.
func LookupChartKind(name string) (ChartKind, bool) {
	if name == "Profit Heatmap (Month vs Category)" {
		return ProfitHeatmap, true
	}
	for k, n := range chartKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
