package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testCSV holds four orders plus one row with an unparseable date.
const testCSV = `Order_ID,Order_Date,Region,Category,Revenue,Profit,Quantity
O1,2024-01-05,North,Gadgets,100,10,1
O2,2024-01-20,South,Gadgets,200,40,2
O3,2024-02-03,North,Tools,1500,-150,3
O4,2024-02-14,East,Books,0,5,4
O5,someday,East,Books,10,1,1
`

func createTestDashboard(t *testing.T) *services.Dashboard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	cache := services.NewDatasetCache(services.NewLoader(testLogger()))
	return services.NewDashboard(cache, services.CSVSource{Path: path}, testLogger())
}

func createFailingDashboard(t *testing.T) *services.Dashboard {
	t.Helper()
	cache := services.NewDatasetCache(services.NewLoader(testLogger()))
	src := services.CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}
	return services.NewDashboard(cache, src, testLogger())
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	dashboard := createTestDashboard(t)
	logger := testLogger()
	handlers := NewAPIHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.dashboard != dashboard {
		t.Error("NewAPIHandlers() should set dashboard field")
	}
}

func TestAPIHandlers_HandleReport(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	w := httptest.NewRecorder()
	handlers.HandleReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", got)
	}

	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("expected success=true in response")
	}

	var report models.Report
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	want := models.KPITotals{TotalRevenue: 1800, TotalProfit: -95, TotalOrders: 4}
	if report.KPIs != want {
		t.Errorf("KPIs = %+v, want %+v", report.KPIs, want)
	}
	if len(report.Charts) != 5 {
		t.Errorf("expected 5 default charts, got %d", len(report.Charts))
	}
	if len(report.Summary) != 3 {
		t.Errorf("expected 3 summary rows, got %d", len(report.Summary))
	}
}

func TestAPIHandlers_HandleKPIs_Filters(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	tests := []struct {
		name  string
		query string
		want  models.KPITotals
	}{
		{"all", "", models.KPITotals{TotalRevenue: 1800, TotalProfit: -95, TotalOrders: 4}},
		{"north", "?region=North", models.KPITotals{TotalRevenue: 1600, TotalProfit: -140, TotalOrders: 2}},
		{"north gadgets", "?region=North&region=South&category=Gadgets", models.KPITotals{TotalRevenue: 300, TotalProfit: 50, TotalOrders: 2}},
		{"empty region selection", "?region=", models.KPITotals{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/kpis"+tt.query, nil)
			w := httptest.NewRecorder()
			handlers.HandleKPIs(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			var kpis models.KPITotals
			if err := json.Unmarshal(decodeEnvelope(t, w).Data, &kpis); err != nil {
				t.Fatal(err)
			}
			if kpis != tt.want {
				t.Errorf("KPIs = %+v, want %+v", kpis, tt.want)
			}
		})
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w := httptest.NewRecorder()
	handlers.HandleSummary(w, req)

	var raw []map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(raw))
	}

	if raw[0]["category"] != "Books" {
		t.Errorf("first category = %v, want Books", raw[0]["category"])
	}
	if raw[0]["profit_margin_pct"] != nil {
		t.Errorf("zero-revenue margin should serialize as null, got %v", raw[0]["profit_margin_pct"])
	}
	if raw[1]["profit_margin_pct"] != 16.67 {
		t.Errorf("Gadgets margin = %v, want 16.67", raw[1]["profit_margin_pct"])
	}
}

func TestAPIHandlers_HandleCharts(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/charts?chart=Profit+Heatmap&chart=Monthly+Revenue+Trend", nil)
	w := httptest.NewRecorder()
	handlers.HandleCharts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var charts []models.ChartDescriptor
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &charts); err != nil {
		t.Fatal(err)
	}
	if len(charts) != 2 {
		t.Fatalf("expected 2 charts, got %d", len(charts))
	}
	if charts[0].Kind != models.ProfitHeatmap || charts[0].Heatmap == nil {
		t.Fatalf("first chart = %+v", charts[0])
	}

	hm := charts[0].Heatmap
	if hm.Rows[0] != "Books" || hm.Columns[0] != "2024-01" {
		t.Fatalf("heatmap axes = %v x %v", hm.Rows, hm.Columns)
	}
	if hm.Cells[0][0].Valid {
		t.Errorf("Books/2024-01 should be a no-data cell, got %+v", hm.Cells[0][0])
	}
	if len(charts[1].Series) != 2 {
		t.Errorf("trend series = %+v", charts[1].Series)
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	w := httptest.NewRecorder()
	handlers.HandleFilters(w, req)

	var options models.FilterOptions
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &options); err != nil {
		t.Fatal(err)
	}
	if len(options.Regions) != 3 || len(options.Categories) != 3 {
		t.Errorf("options = %+v", options)
	}
	if len(options.Charts) != 11 || options.DefaultCharts[0] != models.MonthlyRevenueTrend {
		t.Errorf("chart options = %v / %v", options.Charts, options.DefaultCharts)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", got)
	}

	var health map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health["status"])
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("timestamp should be RFC3339: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}

	expected := map[string]float64{
		"record_count":         4,
		"rows_read":            5,
		"dropped_invalid_date": 1,
		"regions":              3,
		"categories":           3,
		"periods":              2,
	}
	for key, want := range expected {
		if stats[key] != want {
			t.Errorf("stats[%q] = %v, want %v", key, stats[key], want)
		}
	}
}

func TestAPIHandlers_HandleReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	csv := "Order_ID,Order_Date,Region,Category,Revenue,Profit,Quantity\nO1,2024-01-01,North,Tools,10,1,1\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	cache := services.NewDatasetCache(services.NewLoader(testLogger()))
	dashboard := services.NewDashboard(cache, services.CSVSource{Path: path}, testLogger())
	handlers := NewAPIHandlers(dashboard, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	w := httptest.NewRecorder()
	handlers.HandleReload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var stats models.LoadStats
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.RowsKept != 1 {
		t.Errorf("RowsKept = %d, want 1", stats.RowsKept)
	}
}

func TestAPIHandlers_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		dashboard  func(t *testing.T) *services.Dashboard
		target     string
		handler    func(h *APIHandlers) http.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown chart kind",
			dashboard:  createTestDashboard,
			target:     "/api/charts?chart=Pie",
			handler:    func(h *APIHandlers) http.HandlerFunc { return h.HandleCharts },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "report on unreadable source",
			dashboard:  createFailingDashboard,
			target:     "/api/report",
			handler:    func(h *APIHandlers) http.HandlerFunc { return h.HandleReport },
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "LOAD_FAILED",
		},
		{
			name:       "filters on unreadable source",
			dashboard:  createFailingDashboard,
			target:     "/api/filters",
			handler:    func(h *APIHandlers) http.HandlerFunc { return h.HandleFilters },
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "LOAD_FAILED",
		},
		{
			name:       "malformed query string",
			dashboard:  createTestDashboard,
			target:     "/api/kpis?region=%zz",
			handler:    func(h *APIHandlers) http.HandlerFunc { return h.HandleKPIs },
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "reload of unreadable source",
			dashboard:  createFailingDashboard,
			target:     "/admin/reload",
			handler:    func(h *APIHandlers) http.HandlerFunc { return h.HandleReload },
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "LOAD_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandlers(tt.dashboard(t), testLogger())
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()

			tt.handler(h)(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}

			env := decodeEnvelope(t, w)
			if env.Success {
				t.Error("expected success=false")
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("expected error code %s, got %+v", tt.wantCode, env.Error)
			}
			if tt.wantCode == "LOAD_FAILED" && env.Error.Details != "" {
				t.Errorf("load failures should not expose details, got %q", env.Error.Details)
			}
		})
	}
}

func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(t), testLogger())

	endpoints := []struct {
		name    string
		path    string
		handler http.HandlerFunc
	}{
		{"report", "/api/report", handlers.HandleReport},
		{"kpis", "/api/kpis", handlers.HandleKPIs},
		{"summary", "/api/summary", handlers.HandleSummary},
		{"charts", "/api/charts", handlers.HandleCharts},
		{"filters", "/api/filters", handlers.HandleFilters},
	}

	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, ep.path, nil)
			w := httptest.NewRecorder()
			ep.handler(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}
			if !decodeEnvelope(t, w).Success {
				t.Error("expected success=true")
			}
		})
	}
}

func TestParseReportRequest(t *testing.T) {
	signals := func(raw string) string { return "datastar=" + url.QueryEscape(raw) }

	tests := []struct {
		name  string
		query string
		want  services.ReportRequest
	}{
		{"absent", "", services.ReportRequest{}},
		{
			"repeated values",
			"region=North&region=South&category=Tools&chart=3D+Scatter",
			services.ReportRequest{
				Regions:    []string{"North", "South"},
				Categories: []string{"Tools"},
				Charts:     []string{"3D Scatter"},
			},
		},
		{"present but empty", "category=", services.ReportRequest{Categories: []string{}}},
		{
			"datastar signals",
			signals(`{"regionFilter":["North"],"chartFilter":[],"kpis":{"total_orders":4}}`),
			services.ReportRequest{Regions: []string{"North"}, Charts: []string{}},
		},
		{
			"signals take precedence over parameters",
			"region=South&" + signals(`{"regionFilter":["East"]}`),
			services.ReportRequest{Regions: []string{"East"}},
		},
		{"empty signals keep defaults", signals(`{}`), services.ReportRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/report?"+tt.query, nil)
			got, err := parseReportRequest(req)
			if err != nil {
				t.Fatalf("parseReportRequest() error = %v", err)
			}

			check := func(field string, got, want []string) {
				if (got == nil) != (want == nil) || len(got) != len(want) {
					t.Errorf("%s = %#v, want %#v", field, got, want)
					return
				}
				for i := range got {
					if got[i] != want[i] {
						t.Errorf("%s = %#v, want %#v", field, got, want)
					}
				}
			}
			check("Regions", got.Regions, tt.want.Regions)
			check("Categories", got.Categories, tt.want.Categories)
			check("Charts", got.Charts, tt.want.Charts)
		})
	}
}

func TestParseReportRequest_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"bad escape", "region=%zz", "Malformed query string"},
		{"bad signals", "datastar=" + url.QueryEscape(`{"regionFilter":`), "Invalid filter signals"},
		{"wrong signal type", "datastar=" + url.QueryEscape(`{"regionFilter":"North"}`), "Invalid filter signals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/report?"+tt.query, nil)
			_, err := parseReportRequest(req)

			var appErr *apperrors.AppError
			if !stderrors.As(err, &appErr) {
				t.Fatalf("parseReportRequest() error = %v, want *AppError", err)
			}
			if appErr.Code != apperrors.CodeBadRequest || appErr.Message != tt.message {
				t.Errorf("error = %s %q, want BAD_REQUEST %q", appErr.Code, appErr.Message, tt.message)
			}
		})
	}
}
