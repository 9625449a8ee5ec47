package adapters

import (
	"net/http"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/mappers"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

func (h *RequestHandler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchLivenessReportQueryHandler.Execute(r.Context(), queries.FetchLivenessReportQuery{})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, mappers.HealthStatusToHTTPCode(report.Status), report)
}

func (h *RequestHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchReadinessReportQueryHandler.Execute(r.Context(), queries.FetchReadinessReportQuery{})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, mappers.HealthStatusToHTTPCode(report.Status), report)
}

func (h *RequestHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchHealthReportQueryHandler.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, mappers.HealthStatusToHTTPCode(report.Status), report)
}
