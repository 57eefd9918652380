package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	paramRegion   = "region"
	paramCategory = "category"
	paramChart    = "chart"
	// paramSignals carries the page's datastar signals on SSE requests.
	paramSignals = datastar.DatastarKey
)

// parseReportRequest reads the filter selection from the page's datastar
// signals when present, otherwise from repeated region, category and chart
// parameters. An absent parameter keeps the default; a parameter present
// only with empty values selects nothing.
func parseReportRequest(r *http.Request) (services.ReportRequest, error) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return services.ReportRequest{}, errors.BadRequest("Malformed query string").WithDetails(err.Error())
	}

	if query.Has(paramSignals) {
		var signals models.FilterSignals
		if err := datastar.ReadSignals(r, &signals); err != nil {
			return services.ReportRequest{}, errors.BadRequest("Invalid filter signals")
		}
		return services.ReportRequest{
			Regions:    signals.Regions,
			Categories: signals.Categories,
			Charts:     signals.Charts,
		}, nil
	}

	return services.ReportRequest{
		Regions:    queryList(query, paramRegion),
		Categories: queryList(query, paramCategory),
		Charts:     queryList(query, paramChart),
	}, nil
}

func queryList(query url.Values, key string) []string {
	values, ok := query[key]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

// toAppError maps pipeline errors onto HTTP error codes.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, services.ErrUnknownChartKind):
		return errors.ValidationWrap(err, "Unknown chart kind")
	case stderrors.Is(err, services.ErrLoad):
		return errors.LoadFailedWrap(err, "Sales data is unavailable")
	default:
		return errors.InternalWrap(err, "An unexpected error occurred")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteError(w, logger, toAppError(err), observability.GetRequestID(r.Context()))
}
