package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// ReportRequest selects what a report covers. A nil Regions or Categories
// slice selects every known value; a non-nil empty slice selects none. A
// nil Charts slice selects DefaultChartKinds.
type ReportRequest struct {
	Regions    []string
	Categories []string
	Charts     []string
}

// Dashboard runs the load → filter → summarize/chart pipeline against one
// configured source.
type Dashboard struct {
	cache  *DatasetCache
	source Source
	logger *slog.Logger
}

func NewDashboard(cache *DatasetCache, source Source, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		cache:  cache,
		source: source,
		logger: logger,
	}
}

func (d *Dashboard) Dataset(ctx context.Context) (*models.Dataset, error) {
	return d.cache.Get(ctx, d.source)
}

// Reload drops the memoized dataset and loads the source again.
func (d *Dashboard) Reload(ctx context.Context) (*models.Dataset, error) {
	d.cache.Reset(d.source)
	return d.Dataset(ctx)
}

func (d *Dashboard) Report(ctx context.Context, req ReportRequest) (*models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.report")
	defer span.Finish()

	kinds := DefaultChartKinds()
	if req.Charts != nil {
		var err error
		if kinds, err = ParseChartKinds(req.Charts); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	ds, err := d.Dataset(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("dataset: %w", err)
	}

	sel := selectionFor(ds, req)
	view := Filter(ds, sel)
	kpis, summary := Summarize(view)

	charts, err := BuildCharts(view, kinds)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetTag("rows", strconv.Itoa(view.Len()))
	span.SetTag("charts", strconv.Itoa(len(charts)))
	d.logger.Debug("report built",
		"rows", view.Len(),
		"categories", len(summary),
		"charts", len(charts),
		"trace_id", span.TraceID,
	)

	return &models.Report{
		KPIs:      kpis,
		Summary:   summary,
		Charts:    charts,
		RowCount:  view.Len(),
		Generated: time.Now().UTC(),
	}, nil
}

func (d *Dashboard) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return &models.FilterOptions{
		Regions:       ds.Regions(),
		Categories:    ds.Categories(),
		Charts:        ChartCatalog(),
		DefaultCharts: DefaultChartKinds(),
	}, nil
}

// Stats reports load statistics for monitoring.
func (d *Dashboard) Stats(ctx context.Context) (map[string]any, error) {
	ds, err := d.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	return map[string]any{
		"source":               ds.Source,
		"record_count":         ds.Len(),
		"last_loaded":          ds.LoadedAt,
		"rows_read":            ds.Stats.RowsRead,
		"dropped_invalid_date": ds.Stats.DroppedInvalidDate,
		"invalid_revenue":      ds.Stats.InvalidRevenue,
		"invalid_profit":       ds.Stats.InvalidProfit,
		"invalid_quantity":     ds.Stats.InvalidQuantity,
		"regions":              len(ds.Regions()),
		"categories":           len(ds.Categories()),
		"periods":              len(ds.Periods()),
	}, nil
}

func selectionFor(ds *models.Dataset, req ReportRequest) models.FilterSelection {
	if req.Regions == nil && req.Categories == nil {
		return models.AllOf(ds)
	}
	regions := req.Regions
	if regions == nil {
		regions = ds.Regions()
	}
	categories := req.Categories
	if categories == nil {
		categories = ds.Categories()
	}
	return models.NewFilterSelection(regions, categories)
}
