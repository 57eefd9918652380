package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/services"
)

// Reports are derived from a dataset that POST /admin/reload can replace at
// any time, so clients must revalidate instead of reusing a stored copy.
const cacheControl = "no-cache"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) writeData(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.dashboard.Report(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeData(w, report)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Charts = []string{}

	report, err := h.dashboard.Report(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeData(w, report.KPIs)
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Charts = []string{}

	report, err := h.dashboard.Report(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeData(w, report.Summary)
}

func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.dashboard.Report(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeData(w, report.Charts)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	options, err := h.dashboard.FilterOptions(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeData(w, options)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	errors.WriteSuccess(w, stats)
}

// HandleReload drops the memoized dataset and reads the source again.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dashboard.Reload(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("dataset reloaded", "source", ds.Source, "records", ds.Len())
	errors.WriteSuccess(w, ds.Stats)
}
