package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize = 10000
	// maxWorkers bounds concurrent row normalization within one batch.
	maxWorkers = 10
	maxIssues  = 100

	periodLayout = "2006-01"
)

const (
	colOrderID   = "Order_ID"
	colOrderDate = "Order_Date"
	colRegion    = "Region"
	colCategory  = "Category"
	colRevenue   = "Revenue"
	colProfit    = "Profit"
	colQuantity  = "Quantity"
)

var requiredColumns = []string{colOrderID, colOrderDate, colRegion, colCategory, colRevenue, colProfit, colQuantity}

// dateLayouts are tried in order; the first successful parse wins. Month-first
// numeric forms precede their day-first counterparts, so an ambiguous date
// such as 03/04/2024 reads as March 4 and 15/01/2024 falls through to the
// day-first layout.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01-02-2006",
	"1-2-2006",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"2006.01.02",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"20060102",
}

type Loader struct {
	logger *slog.Logger
	loads  atomic.Int64
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Loads reports how many read/parse passes have actually run.
func (l *Loader) Loads() int64 {
	return l.loads.Load()
}

// Load reads and normalizes a source. Rows with an unparseable order date
// are dropped; numeric fields that fail coercion become missing. Both are
// counted in the returned dataset's Stats.
func (l *Loader) Load(ctx context.Context, src Source) (*models.Dataset, error) {
	l.loads.Add(1)
	start := time.Now()

	table, err := src.ReadTable(ctx)
	if err != nil {
		return nil, &LoadError{Source: src.ID(), Reason: "unreadable source", Err: err}
	}

	index, err := columnIndex(table.Columns)
	if err != nil {
		return nil, &LoadError{Source: src.ID(), Reason: err.Error()}
	}

	dataset, err := normalize(ctx, table, index)
	if err != nil {
		return nil, &LoadError{Source: src.ID(), Reason: "normalize rows", Err: err}
	}
	dataset.Source = src.ID()
	dataset.LoadedAt = time.Now()

	stats := dataset.Stats
	l.logger.Info("dataset loaded",
		"source", dataset.Source,
		"rows_read", stats.RowsRead,
		"rows_kept", stats.RowsKept,
		"dropped_invalid_date", stats.DroppedInvalidDate,
		"invalid_revenue", stats.InvalidRevenue,
		"invalid_profit", stats.InvalidProfit,
		"invalid_quantity", stats.InvalidQuantity,
		"duration", time.Since(start),
	)
	if stats.DroppedInvalidDate > 0 {
		l.logger.Warn("rows dropped for unparseable order date",
			"source", dataset.Source,
			"count", stats.DroppedInvalidDate,
		)
	}

	return dataset, nil
}

type columns map[string]int

func columnIndex(header []string) (columns, error) {
	index := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func (c columns) cell(row []string, name string) string {
	i := c[name]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

type parsedRow struct {
	record  models.Record
	issues  []models.RowIssue
	dropped bool
}

func normalize(ctx context.Context, table *RawTable, index columns) (*models.Dataset, error) {
	parsed := make([]parsedRow, len(table.Rows))

	for offset := 0; offset < len(table.Rows); offset += batchSize {
		end := min(offset+batchSize, len(table.Rows))
		if err := normalizeBatch(ctx, table, index, parsed, offset, end); err != nil {
			return nil, err
		}
	}

	dataset := &models.Dataset{
		Records: make([]models.Record, 0, len(parsed)),
	}
	stats := &dataset.Stats
	stats.RowsRead = len(parsed)

	// Merge sequentially so record order and issue order follow the source.
	for _, p := range parsed {
		for _, issue := range p.issues {
			switch issue.Column {
			case colOrderDate:
				stats.DroppedInvalidDate++
			case colRevenue:
				stats.InvalidRevenue++
			case colProfit:
				stats.InvalidProfit++
			case colQuantity:
				stats.InvalidQuantity++
			}
			if len(stats.Issues) < maxIssues {
				stats.Issues = append(stats.Issues, issue)
			}
		}
		if p.dropped {
			continue
		}
		dataset.Records = append(dataset.Records, p.record)
	}
	stats.RowsKept = len(dataset.Records)

	return dataset, nil
}

func normalizeBatch(ctx context.Context, table *RawTable, index columns, out []parsedRow, start, end int) error {
	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i := start; i < end; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = parseRow(table.Rows[i], lineOf(table, i), index)
			return nil
		})
	}

	return g.Wait()
}

func lineOf(table *RawTable, i int) int {
	if i < len(table.Lines) {
		return table.Lines[i]
	}
	return i + 2
}

func parseRow(row []string, line int, index columns) parsedRow {
	var p parsedRow

	rawDate := index.cell(row, colOrderDate)
	date, ok := parseDate(rawDate)
	if !ok {
		p.dropped = true
		p.issues = append(p.issues, models.RowIssue{Line: line, Column: colOrderDate, Value: rawDate, Dropped: true})
		return p
	}

	p.record = models.Record{
		OrderID:   index.cell(row, colOrderID),
		OrderDate: date,
		Period:    date.Format(periodLayout),
		Region:    index.cell(row, colRegion),
		Category:  index.cell(row, colCategory),
	}

	fields := []struct {
		column string
		dest   *models.Measure
		check  func(float64) bool
	}{
		{colRevenue, &p.record.Revenue, nil},
		{colProfit, &p.record.Profit, nil},
		{colQuantity, &p.record.Quantity, func(v float64) bool { return v >= 0 }},
	}
	for _, f := range fields {
		raw := index.cell(row, f.column)
		m := parseMeasure(raw)
		if m.Valid && f.check != nil && !f.check(m.Value) {
			m = models.Missing()
		}
		if !m.Valid {
			p.issues = append(p.issues, models.RowIssue{Line: line, Column: f.column, Value: raw})
		}
		*f.dest = m
	}

	return p
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseMeasure returns a missing measure for empty, non-numeric, NaN and
// infinite input.
func parseMeasure(value string) models.Measure {
	if value == "" {
		return models.Missing()
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Missing()
	}
	return models.Value(v)
}
