package models

import (
	"encoding/json"
	"slices"
	"time"
)

// Measure is a numeric cell that may be missing. Missing values are skipped
// by every sum and serialize as null.
type Measure struct {
	Value float64
	Valid bool
}

func Value(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

func Missing() Measure {
	return Measure{}
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Value(v)
	return nil
}

type Record struct {
	OrderID   string    `json:"order_id"`
	OrderDate time.Time `json:"order_date"`
	Period    string    `json:"period"`
	Region    string    `json:"region"`
	Category  string    `json:"category"`
	Revenue   Measure   `json:"revenue"`
	Profit    Measure   `json:"profit"`
	Quantity  Measure   `json:"quantity"`
}

// RowIssue records one row-level coercion failure. Dropped is set when the
// failure removed the whole row (unparseable order date).
type RowIssue struct {
	Line    int    `json:"line"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Dropped bool   `json:"dropped"`
}

type LoadStats struct {
	RowsRead           int        `json:"rows_read"`
	RowsKept           int        `json:"rows_kept"`
	DroppedInvalidDate int        `json:"dropped_invalid_date"`
	InvalidRevenue     int        `json:"invalid_revenue"`
	InvalidProfit      int        `json:"invalid_profit"`
	InvalidQuantity    int        `json:"invalid_quantity"`
	Issues             []RowIssue `json:"issues,omitempty"`
}

// Dataset is the normalized, immutable result of one load. Callers share a
// single instance and must not modify Records.
type Dataset struct {
	Source   string    `json:"source"`
	Records  []Record  `json:"records"`
	Stats    LoadStats `json:"stats"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

func (d *Dataset) Regions() []string {
	return distinct(d.Records, func(r Record) string { return r.Region })
}

func (d *Dataset) Categories() []string {
	return distinct(d.Records, func(r Record) string { return r.Category })
}

func (d *Dataset) Periods() []string {
	return distinct(d.Records, func(r Record) string { return r.Period })
}

func distinct(records []Record, key func(Record) string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// FilterSelection holds the allowed values per dimension. An empty set
// admits nothing.
type FilterSelection struct {
	Regions    map[string]struct{}
	Categories map[string]struct{}
}

func NewFilterSelection(regions, categories []string) FilterSelection {
	return FilterSelection{
		Regions:    toSet(regions),
		Categories: toSet(categories),
	}
}

// AllOf selects every region and category present in the dataset.
func AllOf(d *Dataset) FilterSelection {
	return NewFilterSelection(d.Regions(), d.Categories())
}

func (s FilterSelection) AllowsRegion(region string) bool {
	_, ok := s.Regions[region]
	return ok
}

func (s FilterSelection) AllowsCategory(category string) bool {
	_, ok := s.Categories[category]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

type FilteredView struct {
	Records []Record `json:"records"`
}

func (v FilteredView) Len() int {
	return len(v.Records)
}

type KPITotals struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalProfit  float64 `json:"total_profit"`
	TotalOrders  int     `json:"total_orders"`
}

type CategorySummary struct {
	Category        string  `json:"category"`
	Orders          int     `json:"orders"`
	Quantity        float64 `json:"quantity"`
	Revenue         float64 `json:"revenue"`
	Profit          float64 `json:"profit"`
	ProfitMarginPct Measure `json:"profit_margin_pct"`
}

type SeriesPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// HeatmapMatrix is a category × period pivot. Cells[i][j] belongs to
// Rows[i] and Columns[j]; an invalid cell means no rows matched.
type HeatmapMatrix struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Cells   [][]Measure `json:"cells"`
}

type ChartDescriptor struct {
	Kind        ChartKind      `json:"kind"`
	Title       string         `json:"title"`
	Mark        string         `json:"mark"`
	GroupBy     []string       `json:"group_by"`
	Measures    []string       `json:"measures"`
	Color       string         `json:"color,omitempty"`
	Size        string         `json:"size,omitempty"`
	Aggregation string         `json:"aggregation"`
	Series      []SeriesPoint  `json:"series,omitempty"`
	Rows        []Record       `json:"rows,omitempty"`
	Heatmap     *HeatmapMatrix `json:"heatmap,omitempty"`
}

type Report struct {
	KPIs      KPITotals         `json:"kpis"`
	Summary   []CategorySummary `json:"summary"`
	Charts    []ChartDescriptor `json:"charts"`
	RowCount  int               `json:"row_count"`
	Generated time.Time         `json:"generated"`
}

// FilterOptions describes the selectable values offered to a caller before
// the first report.
type FilterOptions struct {
	Regions       []string    `json:"regions"`
	Categories    []string    `json:"categories"`
	Charts        []ChartKind `json:"charts"`
	DefaultCharts []ChartKind `json:"default_charts"`
}

// Signals returns the initial client-side selection: every region and
// category with the default charts.
func (o *FilterOptions) Signals() FilterSignals {
	charts := make([]string, len(o.DefaultCharts))
	for i, k := range o.DefaultCharts {
		charts[i] = k.String()
	}
	return FilterSignals{
		Regions:    slices.Clone(o.Regions),
		Categories: slices.Clone(o.Categories),
		Charts:     charts,
	}
}

// FilterSignals is the filter state the dashboard page keeps in datastar
// signals and sends back with every SSE request. A nil field means the
// page did not send it; an empty one selects nothing.
type FilterSignals struct {
	Regions    []string `json:"regionFilter"`
	Categories []string `json:"categoryFilter"`
	Charts     []string `json:"chartFilter"`
}
