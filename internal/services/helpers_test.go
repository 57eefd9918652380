package services

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sales-dashboard/internal/models"
)

// sampleCSV has one row with an unparseable date (line 5), one with a bad
// revenue (line 6) and one with an empty profit (line 7).
const sampleCSV = `Order_ID, Order_Date ,Region,Category,Revenue,Profit,Quantity,Customer
O1,2024-01-05,North,Gadgets,100,10,1,a
O2,2024-01-20,South,Gadgets,200,40,2,b
O3,2024-02-03,North,Tools,50,-5,3,c
O4,not-a-date,South,Tools,70,7,1,d
O5,2024-02-14,East,Books,abc,3,4,e
O6,03/15/2024,South,Books,30,,2,f
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func rec(id, date, region, category string, revenue, profit, quantity float64) models.Record {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.Record{
		OrderID:   id,
		OrderDate: d,
		Period:    d.Format(periodLayout),
		Region:    region,
		Category:  category,
		Revenue:   models.Value(revenue),
		Profit:    models.Value(profit),
		Quantity:  models.Value(quantity),
	}
}

func datasetOf(records ...models.Record) *models.Dataset {
	return &models.Dataset{
		Source:  "test",
		Records: records,
		Stats:   models.LoadStats{RowsRead: len(records), RowsKept: len(records)},
	}
}

func viewOf(records ...models.Record) models.FilteredView {
	return models.FilteredView{Records: records}
}
