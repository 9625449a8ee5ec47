package adapters

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/http/mappers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/middleware"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

func (h *RequestHandler) ListApiKeys(w http.ResponseWriter, r *http.Request, params handlers.ListApiKeysParams) {
	page, err := h.app.Queries.ListApiKeysQueryHandler.Execute(r.Context(), queries.ListApiKeysQuery{
		Page: mappers.PageRequest(params.Page, params.PerPage),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *RequestHandler) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req handlers.CreateApiKeyRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	issued, err := h.app.Commands.CreateApiKeyHandler.Handle(r.Context(), commands.CreateApiKeyCommand{
		Name:      req.Name,
		Scopes:    req.Scopes,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	event := h.logger.Info().Str("api_key_id", issued.ID.String()).Strs("scopes", issued.Scopes)
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		event = event.Str("issued_by", principal.Subject)
	}

	event.Msg("api key issued")

	h.writeJSON(w, http.StatusCreated, issued)
}

func (h *RequestHandler) RevokeApiKey(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := h.app.Commands.RevokeApiKeyHandler.Handle(r.Context(), commands.RevokeApiKeyCommand{ID: id}); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestHandler) ListWorkflows(w http.ResponseWriter, r *http.Request, params handlers.ListWorkflowsParams) {
	page, err := h.app.Queries.ListWorkflowsQueryHandler.Execute(r.Context(), queries.ListWorkflowsQuery{
		Page: mappers.PageRequest(params.Page, params.PerPage),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *RequestHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req handlers.CreateWorkflowRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	workflow, err := h.app.Commands.CreateWorkflowHandler.Handle(r.Context(), commands.CreateWorkflowCommand{
		Workflow: mappers.CreateWorkflowRequestToDomain(req),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	w.Header().Set("Location", "/api/v1/workflows/"+workflow.ID.String())
	h.writeJSON(w, http.StatusCreated, workflow)
}

func (h *RequestHandler) GetWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	workflow, err := h.app.Queries.FetchWorkflowQueryHandler.Execute(r.Context(), queries.FetchWorkflowQuery{ID: id})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, workflow)
}

func (h *RequestHandler) UpdateWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req handlers.UpdateWorkflowRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	workflow, err := h.app.Commands.UpdateWorkflowHandler.Handle(r.Context(), commands.UpdateWorkflowCommand{
		ID:    id,
		Patch: mappers.UpdateWorkflowRequestToPatch(req),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, workflow)
}

func (h *RequestHandler) DeleteWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := h.app.Commands.DeleteWorkflowHandler.Handle(r.Context(), commands.DeleteWorkflowCommand{ID: id}); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
