package adapters

import (
	"net/http"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/http/mappers"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

func (h *RequestHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Queries.FetchDashboardStatsQueryHandler.Execute(r.Context(), queries.FetchDashboardStatsQuery{})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *RequestHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Queries.FetchQueueStatsQueryHandler.Execute(r.Context(), queries.FetchQueueStatsQuery{})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	if stats == nil {
		stats = []domain.QueueStats{}
	}

	h.writeJSON(w, http.StatusOK, handlers.QueueStatsResponse{Data: stats})
}

func (h *RequestHandler) SearchLogs(w http.ResponseWriter, r *http.Request, params handlers.SearchLogsParams) {
	page, err := h.app.Queries.SearchLogsQueryHandler.Execute(r.Context(), queries.SearchLogsQuery{
		Filter: mappers.SearchLogsParamsToFilter(params),
		Page:   mappers.PageRequest(params.Page, params.PerPage),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *RequestHandler) ListScraperJobs(w http.ResponseWriter, r *http.Request, params handlers.ListScraperJobsParams) {
	query := queries.ListScraperJobsQuery{
		Page: mappers.PageRequest(params.Page, params.PerPage),
	}

	if params.Status != nil {
		query.Status = domain.ScraperJobStatus(*params.Status)
	}

	page, err := h.app.Queries.ListScraperJobsQueryHandler.Execute(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *RequestHandler) CreateScraperJob(w http.ResponseWriter, r *http.Request) {
	var req handlers.CreateScraperJobRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	job, err := h.app.Commands.CreateScraperJobHandler.Handle(r.Context(), commands.CreateScraperJobCommand{
		Job: mappers.CreateScraperJobRequestToDomain(req),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *RequestHandler) LookupAirtableRecord(w http.ResponseWriter, r *http.Request, params handlers.LookupAirtableRecordParams) {
	result, err := h.app.Queries.LookupAirtableRecordQueryHandler.Execute(r.Context(), queries.LookupAirtableRecordQuery{
		Request: mappers.LookupParamsToDomain(params),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *RequestHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req handlers.InvalidateCacheRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	result, err := h.app.Commands.InvalidateCacheHandler.Handle(r.Context(), commands.InvalidateCacheCommand{
		Patterns: req.Patterns,
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
