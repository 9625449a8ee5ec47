package adapters

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/http/mappers"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

func (h *RequestHandler) ListOrders(w http.ResponseWriter, r *http.Request, params handlers.ListOrdersParams) {
	page, err := h.app.Queries.ListOrdersQueryHandler.Execute(r.Context(), queries.ListOrdersQuery{
		Filter: mappers.ListOrdersParamsToFilter(params),
		Page:   mappers.PageRequest(params.Page, params.PerPage),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *RequestHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req handlers.CreateOrderRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	order, err := h.app.Commands.CreateOrderHandler.Handle(r.Context(), commands.CreateOrderCommand{
		Order: mappers.CreateOrderRequestToDomain(req),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+order.ID.String())
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *RequestHandler) GetOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	order, err := h.app.Queries.FetchOrderQueryHandler.Execute(r.Context(), queries.FetchOrderQuery{ID: id})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *RequestHandler) UpdateOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req handlers.UpdateOrderRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	order, err := h.app.Commands.UpdateOrderHandler.Handle(r.Context(), commands.UpdateOrderCommand{
		ID:    id,
		Patch: mappers.UpdateOrderRequestToPatch(req),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *RequestHandler) DeleteOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := h.app.Commands.DeleteOrderHandler.Handle(r.Context(), commands.DeleteOrderCommand{ID: id}); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestHandler) GenerateOrderDocument(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req handlers.GenerateDocumentRequest
	if err := h.decodeOptionalBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	job, err := h.app.Commands.RequestOrderDocumentHandler.Handle(r.Context(), commands.RequestOrderDocumentCommand{
		ID:          id,
		EmailClient: req.EmailClient,
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusAccepted, mappers.JobToAccepted(job))
}

func (h *RequestHandler) BulkUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req handlers.BulkStatusRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	result, err := h.app.Commands.BulkUpdateStatusHandler.Handle(r.Context(), commands.BulkUpdateStatusCommand{
		IDs:    req.IDs,
		Status: domain.OrderStatus(req.Status),
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *RequestHandler) BulkNotifyOrders(w http.ResponseWriter, r *http.Request) {
	var req handlers.BulkNotifyRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	result, err := h.app.Commands.BulkNotifyHandler.Handle(r.Context(), commands.BulkNotifyCommand{
		IDs:      req.IDs,
		Template: req.Template,
	})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusAccepted, result)
}
