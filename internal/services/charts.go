package services

import (
	"slices"
	"strings"

	"sales-dashboard/internal/models"
)

const (
	fieldPeriod   = "period"
	fieldRegion   = "region"
	fieldCategory = "category"
	fieldRevenue  = "revenue"
	fieldProfit   = "profit"
	fieldQuantity = "quantity"

	aggSum          = "sum"
	aggDistribution = "distribution"
	aggNone         = "none"
)

const defaultChartCount = 5

type chartSpec struct {
	title    string
	mark     string
	groupBy  []string
	measures []string
	color    string
	size     string
	agg      string
	build    func(view models.FilteredView, d *models.ChartDescriptor)
}

var chartCatalog = map[models.ChartKind]chartSpec{
	models.MonthlyRevenueTrend: {
		title: "Monthly Revenue Trend", mark: "line",
		groupBy: []string{fieldPeriod}, measures: []string{fieldRevenue},
		agg: aggSum, build: periodSeries(func(r models.Record) models.Measure { return r.Revenue }),
	},
	models.MonthlyProfitArea: {
		title: "Monthly Profit Area", mark: "area",
		groupBy: []string{fieldPeriod}, measures: []string{fieldProfit},
		agg: aggSum, build: periodSeries(func(r models.Record) models.Measure { return r.Profit }),
	},
	models.RevenueProfitBubble: {
		title: "Revenue vs Profit Bubble", mark: "scatter",
		measures: []string{fieldRevenue, fieldProfit},
		size:     fieldQuantity, color: fieldRegion,
		agg: aggNone, build: rowLevel,
	},
	models.ProfitViolinByCategory: {
		title: "Profit Distribution by Category", mark: "violin",
		groupBy: []string{fieldCategory}, measures: []string{fieldProfit},
		color: fieldCategory,
		agg:   aggDistribution, build: rowLevel,
	},
	models.QuantityStripByRegion: {
		title: "Quantity Distribution by Region", mark: "strip",
		groupBy: []string{fieldRegion}, measures: []string{fieldQuantity},
		color: fieldRegion,
		agg:   aggDistribution, build: rowLevel,
	},
	models.ProfitBoxPlot: {
		title: "Profit Box Plot by Category", mark: "box",
		groupBy: []string{fieldCategory}, measures: []string{fieldProfit},
		color: fieldCategory,
		agg:   aggDistribution, build: rowLevel,
	},
	models.Scatter3D: {
		title: "3D Scatter: Revenue vs Profit vs Quantity", mark: "scatter3d",
		measures: []string{fieldRevenue, fieldProfit, fieldQuantity},
		color:    fieldRegion, size: fieldProfit,
		agg: aggNone, build: rowLevel,
	},
	models.RevenueQuantityScatter: {
		title: "Revenue vs Quantity Scatter", mark: "scatter",
		measures: []string{fieldRevenue, fieldQuantity},
		color:    fieldCategory, size: fieldProfit,
		agg: aggNone, build: rowLevel,
	},
	models.ProfitHeatmap: {
		title: "Profit Heatmap", mark: "heatmap",
		groupBy: []string{fieldPeriod, fieldCategory}, measures: []string{fieldProfit},
		agg: aggSum, build: profitHeatmap,
	},
	models.QuantityAreaTrend: {
		title: "Quantity Trend Over Months", mark: "area",
		groupBy: []string{fieldPeriod}, measures: []string{fieldQuantity},
		agg: aggSum, build: periodSeries(func(r models.Record) models.Measure { return r.Quantity }),
	},
	models.RevenueProfitDensity: {
		title: "Revenue vs Profit Density Contour", mark: "density_contour",
		measures: []string{fieldRevenue, fieldProfit},
		color:    fieldRegion,
		agg:      aggNone, build: rowLevel,
	},
}

// ChartCatalog lists every buildable chart kind in declaration order.
func ChartCatalog() []models.ChartKind {
	return models.ChartKinds()
}

// DefaultChartKinds is the initial chart selection: the first five catalog
// entries.
func DefaultChartKinds() []models.ChartKind {
	return ChartCatalog()[:defaultChartCount]
}

// ParseChartKinds resolves catalog names. The first unknown name fails the
// whole request with an *UnknownChartKindError.
func ParseChartKinds(names []string) ([]models.ChartKind, error) {
	kinds := make([]models.ChartKind, 0, len(names))
	for _, name := range names {
		kind, ok := models.LookupChartKind(name)
		if !ok {
			return nil, &UnknownChartKindError{Name: name}
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// BuildCharts produces one descriptor per requested kind, in request order.
// Repeated kinds are built once.
func BuildCharts(view models.FilteredView, kinds []models.ChartKind) ([]models.ChartDescriptor, error) {
	charts := make([]models.ChartDescriptor, 0, len(kinds))
	seen := make(map[models.ChartKind]bool, len(kinds))

	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, &UnknownChartKindError{Name: kind.String()}
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true

		spec := chartCatalog[kind]
		d := models.ChartDescriptor{
			Kind:        kind,
			Title:       spec.title,
			Mark:        spec.mark,
			GroupBy:     slices.Clone(spec.groupBy),
			Measures:    slices.Clone(spec.measures),
			Color:       spec.color,
			Size:        spec.size,
			Aggregation: spec.agg,
		}
		if d.GroupBy == nil {
			d.GroupBy = []string{}
		}
		spec.build(view, &d)
		charts = append(charts, d)
	}

	return charts, nil
}

func rowLevel(view models.FilteredView, d *models.ChartDescriptor) {
	d.Rows = view.Records
}

// periodSeries sums one measure per period, sorted by period. A period with
// rows but only missing values sums to zero.
func periodSeries(measure func(models.Record) models.Measure) func(models.FilteredView, *models.ChartDescriptor) {
	return func(view models.FilteredView, d *models.ChartDescriptor) {
		sums := make(map[string]float64)
		for _, r := range view.Records {
			sums[r.Period] += valueOrZero(measure(r))
		}

		series := make([]models.SeriesPoint, 0, len(sums))
		for period, v := range sums {
			series = append(series, models.SeriesPoint{Period: period, Value: v})
		}
		slices.SortFunc(series, func(a, b models.SeriesPoint) int {
			return strings.Compare(a.Period, b.Period)
		})
		d.Series = series
	}
}

// profitHeatmap pivots summed profit into categories × periods. Cells with no
// matching rows stay invalid.
func profitHeatmap(view models.FilteredView, d *models.ChartDescriptor) {
	type cellKey struct{ category, period string }

	sums := make(map[cellKey]float64)
	categorySet := make(map[string]struct{})
	periodSet := make(map[string]struct{})
	for _, r := range view.Records {
		sums[cellKey{r.Category, r.Period}] += valueOrZero(r.Profit)
		categorySet[r.Category] = struct{}{}
		periodSet[r.Period] = struct{}{}
	}

	matrix := &models.HeatmapMatrix{
		Rows:    sortedKeys(categorySet),
		Columns: sortedKeys(periodSet),
	}
	matrix.Cells = make([][]models.Measure, len(matrix.Rows))
	for i, category := range matrix.Rows {
		row := make([]models.Measure, len(matrix.Columns))
		for j, period := range matrix.Columns {
			if v, ok := sums[cellKey{category, period}]; ok {
				row[j] = models.Value(v)
			}
		}
		matrix.Cells[i] = row
	}
	d.Heatmap = matrix
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
