package adapters

import (
	"net/http"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/http/mappers"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
)

func (h *RequestHandler) ReceiveViziWebhook(w http.ResponseWriter, r *http.Request) {
	h.ingestOrder(w, r, domain.OrderSourceVizi)
}

func (h *RequestHandler) ReceiveN8nWebhook(w http.ResponseWriter, r *http.Request) {
	h.ingestOrder(w, r, domain.OrderSourceN8N)
}

func (h *RequestHandler) ingestOrder(w http.ResponseWriter, r *http.Request, source string) {
	body, err := h.readRawBody(w, r)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	result, err := h.app.Commands.IngestWebhookOrderHandler.Handle(r.Context(), commands.IngestWebhookOrderCommand{
		Source: source,
		Body:   body,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("source", source).Msg("webhook rejected")
		h.writeError(w, r, err)

		return
	}

	h.writeJSON(w, mappers.IngestResultToHTTPCode(result.Created), handlers.WebhookAccepted{
		Order:   result.Order,
		Created: result.Created,
	})
}

// ReceiveSupabaseAuthHook answers in the shape Supabase expects instead of a problem document.
func (h *RequestHandler) ReceiveSupabaseAuthHook(w http.ResponseWriter, r *http.Request) {
	body, err := h.readRawBody(w, r)
	if err == nil {
		_, err = h.app.Commands.HandleAuthEmailHandler.Handle(r.Context(), commands.HandleAuthEmailCommand{
			Headers: r.Header,
			Body:    body,
		})
	}

	if err == nil {
		h.writeJSON(w, http.StatusOK, handlers.AuthHookResponse{})

		return
	}

	domainErr := domain.AsDomainError(err)
	h.logger.Warn().Err(err).Str("code", domainErr.Code).Msg("auth email hook failed")

	status := domainErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := domainErr.Message
	if status >= http.StatusInternalServerError {
		message = "failed to send email"
	}

	h.writeJSON(w, status, handlers.AuthHookResponse{
		Error: &domain.AuthHookError{HTTPCode: status, Message: message},
	})
}
