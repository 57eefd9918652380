package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

var templateFuncs = template.FuncMap{
	"amount": formatAmount,
	"count":  formatCount,
	"margin": formatMargin,
}

var kpiTemplate = template.Must(template.New("kpis").Funcs(templateFuncs).Parse(`
<div id="kpi-content" class="kpi-grid">
<div class="kpi"><span class="kpi-label">Total Revenue</span><strong>{{amount .TotalRevenue}}</strong></div>
<div class="kpi"><span class="kpi-label">Total Profit</span><strong>{{amount .TotalProfit}}</strong></div>
<div class="kpi"><span class="kpi-label">Total Orders</span><strong>{{count .TotalOrders}}</strong></div>
</div>`))

var summaryTableTemplate = template.Must(template.New("summaryTable").Funcs(templateFuncs).Parse(`
<div id="summary-content">
{{if .Data}}<table class="modern-table">
<thead><tr><th>Category</th><th>Orders</th><th>Quantity</th><th>Revenue</th><th>Profit</th><th>Profit Margin %</th></tr></thead>
<tbody>
{{range .Data}}<tr>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{count .Orders}}</td>
<td>{{amount .Quantity}}</td>
<td><strong>{{amount .Revenue}}</strong></td>
<td>{{amount .Profit}}</td>
<td>{{margin .ProfitMarginPct}}</td>
</tr>{{end}}
</tbody>
</table>{{else}}<p class="empty-state">No sales match the selected filters.</p>{{end}}
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(`<div id="dashboard-error" class="error-banner">{{.}}</div>`))

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

type templateData struct {
	Data []models.CategorySummary
}

func (h *SSEHandlers) renderSummaryTable(data []models.CategorySummary) (string, error) {
	var buf strings.Builder
	err := summaryTableTemplate.Execute(&buf, templateData{Data: data})
	return buf.String(), err
}

func (h *SSEHandlers) renderKPIs(kpis models.KPITotals) (string, error) {
	var buf strings.Builder
	err := kpiTemplate.Execute(&buf, kpis)
	return buf.String(), err
}

// report builds the report selected by r, patching an error banner into
// the page when the request is malformed or the report fails. withCharts
// false skips chart building.
func (h *SSEHandlers) report(sse *datastar.ServerSentEventGenerator, r *http.Request, withCharts bool) (*models.Report, bool) {
	req, err := parseReportRequest(r)
	if err != nil {
		h.fail(sse, err)
		return nil, false
	}
	if !withCharts {
		req.Charts = []string{}
	}

	report, err := h.dashboard.Report(r.Context(), req)
	if err != nil {
		h.fail(sse, err)
		return nil, false
	}
	return report, true
}

func (h *SSEHandlers) fail(sse *datastar.ServerSentEventGenerator, err error) {
	appErr := toAppError(err)
	h.logger.Warn("sse report failed", "error", err, "code", appErr.Code)

	var buf strings.Builder
	if execErr := errorTemplate.Execute(&buf, appErr.Message); execErr == nil {
		sse.PatchElements(buf.String())
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	report, ok := h.report(sse, r, false)
	if !ok {
		return
	}

	html, err := h.renderKPIs(report.KPIs)
	if err != nil {
		h.logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	report, ok := h.report(sse, r, false)
	if !ok {
		return
	}

	html, err := h.renderSummaryTable(report.Summary)
	if err != nil {
		h.logger.Error("render summary table", "error", err)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	report, ok := h.report(sse, r, true)
	if !ok {
		return
	}

	jsonData, err := json.Marshal(map[string]any{
		"charts": report.Charts,
	})
	if err != nil {
		h.logger.Error("marshal charts data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
	sse.PatchElements(`<div id="charts-content">Chart data loaded</div>`)
	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	report, ok := h.report(sse, r, true)
	if !ok {
		return
	}

	kpiHTML, err := h.renderKPIs(report.KPIs)
	if err != nil {
		h.logger.Error("render kpis", "error", err)
		return
	}
	sse.PatchElements(kpiHTML)

	tableHTML, err := h.renderSummaryTable(report.Summary)
	if err != nil {
		h.logger.Error("render summary table", "error", err)
		return
	}
	sse.PatchElements(tableHTML)

	allSignals, err := json.Marshal(map[string]any{
		"kpis":     report.KPIs,
		"charts":   report.Charts,
		"rowCount": report.RowCount,
	})
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(allSignals)
	flush(w)
}
