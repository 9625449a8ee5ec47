package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type (
	// ServerInterface represents all server handlers.
	ServerInterface interface {
		// (GET /health/live)
		GetLiveness(w http.ResponseWriter, r *http.Request)
		// (GET /health/ready)
		GetReadiness(w http.ResponseWriter, r *http.Request)
		// (GET /health)
		GetHealth(w http.ResponseWriter, r *http.Request)

		// (GET /api/v1/orders)
		ListOrders(w http.ResponseWriter, r *http.Request, params ListOrdersParams)
		// (POST /api/v1/orders)
		CreateOrder(w http.ResponseWriter, r *http.Request)
		// (GET /api/v1/orders/{id})
		GetOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (PATCH /api/v1/orders/{id})
		UpdateOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (DELETE /api/v1/orders/{id})
		DeleteOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (POST /api/v1/orders/{id}/pdf)
		GenerateOrderDocument(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (POST /api/v1/orders/batch/status)
		BulkUpdateOrderStatus(w http.ResponseWriter, r *http.Request)
		// (POST /api/v1/orders/batch/notify)
		BulkNotifyOrders(w http.ResponseWriter, r *http.Request)

		// (GET /api/v1/api-keys)
		ListApiKeys(w http.ResponseWriter, r *http.Request, params ListApiKeysParams)
		// (POST /api/v1/api-keys)
		CreateApiKey(w http.ResponseWriter, r *http.Request)
		// (DELETE /api/v1/api-keys/{id})
		RevokeApiKey(w http.ResponseWriter, r *http.Request, id uuid.UUID)

		// (GET /api/v1/workflows)
		ListWorkflows(w http.ResponseWriter, r *http.Request, params ListWorkflowsParams)
		// (POST /api/v1/workflows)
		CreateWorkflow(w http.ResponseWriter, r *http.Request)
		// (GET /api/v1/workflows/{id})
		GetWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (PATCH /api/v1/workflows/{id})
		UpdateWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID)
		// (DELETE /api/v1/workflows/{id})
		DeleteWorkflow(w http.ResponseWriter, r *http.Request, id uuid.UUID)

		// (POST /api/v1/webhooks/vizi)
		ReceiveViziWebhook(w http.ResponseWriter, r *http.Request)
		// (POST /api/v1/webhooks/n8n)
		ReceiveN8nWebhook(w http.ResponseWriter, r *http.Request)
		// (POST /api/v1/webhooks/supabase/auth)
		ReceiveSupabaseAuthHook(w http.ResponseWriter, r *http.Request)

		// (GET /api/v1/admin/dashboard)
		GetDashboardStats(w http.ResponseWriter, r *http.Request)
		// (GET /api/v1/admin/queues)
		GetQueueStats(w http.ResponseWriter, r *http.Request)
		// (GET /api/v1/admin/logs)
		SearchLogs(w http.ResponseWriter, r *http.Request, params SearchLogsParams)
		// (GET /api/v1/admin/scraper-jobs)
		ListScraperJobs(w http.ResponseWriter, r *http.Request, params ListScraperJobsParams)
		// (POST /api/v1/admin/scraper-jobs)
		CreateScraperJob(w http.ResponseWriter, r *http.Request)
		// (GET /api/v1/admin/airtable/lookup)
		LookupAirtableRecord(w http.ResponseWriter, r *http.Request, params LookupAirtableRecordParams)
		// (POST /api/v1/admin/cache/invalidate)
		InvalidateCache(w http.ResponseWriter, r *http.Request)
	}

	MiddlewareFunc func(http.Handler) http.Handler

	// RouteAuth guards operations by the kind of caller they admit.
	RouteAuth interface {
		RequireAdmin(next http.Handler) http.Handler
		RequireScope(scope string) func(http.Handler) http.Handler
	}

	ChiServerOptions struct {
		BaseURL    string
		BaseRouter chi.Router
		// Middlewares run in the listed order, after route authentication.
		Middlewares      []MiddlewareFunc
		Auth             RouteAuth
		ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
	}

	// ServerInterfaceWrapper converts contexts to parameters.
	ServerInterfaceWrapper struct {
		Handler            ServerInterface
		HandlerMiddlewares []MiddlewareFunc
		Auth               RouteAuth
		ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
	}

	// access names what a route requires from the caller.
	access struct {
		admin  bool
		scope  string
		public bool
	}

	RequiredParamError struct {
		ParamName string
	}

	InvalidParamFormatError struct {
		ParamName string
		Err       error
	}
)

var (
	public    = access{public: true}
	adminOnly = access{admin: true}
)

func scoped(scope string) access {
	return access{scope: scope}
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ToDomainError maps a parameter binding failure onto a VAL-001 problem.
func ToDomainError(err error) *domain.DomainError {
	switch e := err.(type) {
	case *InvalidParamFormatError:
		return domain.NewValidationError("invalid request parameter", domain.FieldError{Field: e.ParamName, Message: e.Err.Error()})
	case *RequiredParamError:
		return domain.NewValidationError("missing request parameter", domain.FieldError{Field: e.ParamName, Message: "is required"})
	default:
		return domain.AsDomainError(err)
	}
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}

	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		Auth:               options.Auth,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL

	r.Group(func(r chi.Router) {
		r.Get(base+"/health/live", wrapper.route(public, wrapper.GetLiveness))
		r.Get(base+"/health/ready", wrapper.route(public, wrapper.GetReadiness))
		r.Get(base+"/health", wrapper.route(public, wrapper.GetHealth))

		r.Get(base+"/api/v1/orders", wrapper.route(scoped(domain.ScopeOrdersRead), wrapper.ListOrders))
		r.Post(base+"/api/v1/orders", wrapper.route(scoped(domain.ScopeOrdersWrite), wrapper.CreateOrder))
		r.Post(base+"/api/v1/orders/batch/status", wrapper.route(adminOnly, wrapper.BulkUpdateOrderStatus))
		r.Post(base+"/api/v1/orders/batch/notify", wrapper.route(adminOnly, wrapper.BulkNotifyOrders))
		r.Get(base+"/api/v1/orders/{id}", wrapper.route(scoped(domain.ScopeOrdersRead), wrapper.GetOrder))
		r.Patch(base+"/api/v1/orders/{id}", wrapper.route(scoped(domain.ScopeOrdersWrite), wrapper.UpdateOrder))
		r.Delete(base+"/api/v1/orders/{id}", wrapper.route(scoped(domain.ScopeOrdersWrite), wrapper.DeleteOrder))
		r.Post(base+"/api/v1/orders/{id}/pdf", wrapper.route(scoped(domain.ScopeOrdersWrite), wrapper.GenerateOrderDocument))

		r.Get(base+"/api/v1/api-keys", wrapper.route(adminOnly, wrapper.ListApiKeys))
		r.Post(base+"/api/v1/api-keys", wrapper.route(adminOnly, wrapper.CreateApiKey))
		r.Delete(base+"/api/v1/api-keys/{id}", wrapper.route(adminOnly, wrapper.RevokeApiKey))

		r.Get(base+"/api/v1/workflows", wrapper.route(scoped(domain.ScopeWorkflowsRead), wrapper.ListWorkflows))
		r.Post(base+"/api/v1/workflows", wrapper.route(scoped(domain.ScopeWorkflowsWrite), wrapper.CreateWorkflow))
		r.Get(base+"/api/v1/workflows/{id}", wrapper.route(scoped(domain.ScopeWorkflowsRead), wrapper.GetWorkflow))
		r.Patch(base+"/api/v1/workflows/{id}", wrapper.route(scoped(domain.ScopeWorkflowsWrite), wrapper.UpdateWorkflow))
		r.Delete(base+"/api/v1/workflows/{id}", wrapper.route(scoped(domain.ScopeWorkflowsWrite), wrapper.DeleteWorkflow))

		r.Post(base+"/api/v1/webhooks/vizi", wrapper.route(scoped(domain.ScopeWebhooksWrite), wrapper.ReceiveViziWebhook))
		r.Post(base+"/api/v1/webhooks/n8n", wrapper.route(scoped(domain.ScopeWebhooksWrite), wrapper.ReceiveN8nWebhook))
		// Authenticated by the webhook signature inside the handler.
		r.Post(base+"/api/v1/webhooks/supabase/auth", wrapper.route(public, wrapper.ReceiveSupabaseAuthHook))

		r.Get(base+"/api/v1/admin/dashboard", wrapper.route(adminOnly, wrapper.GetDashboardStats))
		r.Get(base+"/api/v1/admin/queues", wrapper.route(adminOnly, wrapper.GetQueueStats))
		r.Get(base+"/api/v1/admin/logs", wrapper.route(adminOnly, wrapper.SearchLogs))
		r.Get(base+"/api/v1/admin/scraper-jobs", wrapper.route(adminOnly, wrapper.ListScraperJobs))
		r.Post(base+"/api/v1/admin/scraper-jobs", wrapper.route(adminOnly, wrapper.CreateScraperJob))
		r.Get(base+"/api/v1/admin/airtable/lookup", wrapper.route(adminOnly, wrapper.LookupAirtableRecord))
		r.Post(base+"/api/v1/admin/cache/invalidate", wrapper.route(adminOnly, wrapper.InvalidateCache))
	})

	return r
}

// route wraps an operation with its access guard and the handler middlewares.
func (siw *ServerInterfaceWrapper) route(acc access, operation http.HandlerFunc) http.HandlerFunc {
	var handler http.Handler = operation

	for i := len(siw.HandlerMiddlewares) - 1; i >= 0; i-- {
		handler = siw.HandlerMiddlewares[i](handler)
	}

	if siw.Auth != nil && !acc.public {
		switch {
		case acc.admin:
			handler = siw.Auth.RequireAdmin(handler)
		case acc.scope != "":
			handler = siw.Auth.RequireScope(acc.scope)(handler)
		}
	}

	return handler.ServeHTTP
}

func (siw *ServerInterfaceWrapper) GetLiveness(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetLiveness(w, r)
}

func (siw *ServerInterfaceWrapper) GetReadiness(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetReadiness(w, r)
}

func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetHealth(w, r)
}

func (siw *ServerInterfaceWrapper) ListOrders(w http.ResponseWriter, r *http.Request) {
	var params ListOrdersParams

	query := r.URL.Query()

	for _, binding := range []struct {
		name string
		dest any
	}{
		{"page", &params.Page},
		{"per_page", &params.PerPage},
		{"status", &params.Status},
		{"payment_status", &params.PaymentStatus},
		{"country", &params.Country},
		{"source", &params.Source},
		{"search", &params.Search},
		{"created_from", &params.CreatedFrom},
		{"created_to", &params.CreatedTo},
	} {
		if err := runtime.BindQueryParameter("form", true, false, binding.name, query, binding.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: binding.name, Err: err})

			return
		}
	}

	siw.Handler.ListOrders(w, r, params)
}

func (siw *ServerInterfaceWrapper) CreateOrder(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateOrder(w, r)
}

func (siw *ServerInterfaceWrapper) GetOrder(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.GetOrder(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.UpdateOrder(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.DeleteOrder(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) GenerateOrderDocument(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.GenerateOrderDocument(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) BulkUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	siw.Handler.BulkUpdateOrderStatus(w, r)
}

func (siw *ServerInterfaceWrapper) BulkNotifyOrders(w http.ResponseWriter, r *http.Request) {
	siw.Handler.BulkNotifyOrders(w, r)
}

func (siw *ServerInterfaceWrapper) ListApiKeys(w http.ResponseWriter, r *http.Request) {
	var params ListApiKeysParams

	if !siw.bindPage(w, r, &params.Page, &params.PerPage) {
		return
	}

	siw.Handler.ListApiKeys(w, r, params)
}

func (siw *ServerInterfaceWrapper) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateApiKey(w, r)
}

func (siw *ServerInterfaceWrapper) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.RevokeApiKey(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	var params ListWorkflowsParams

	if !siw.bindPage(w, r, &params.Page, &params.PerPage) {
		return
	}

	siw.Handler.ListWorkflows(w, r, params)
}

func (siw *ServerInterfaceWrapper) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateWorkflow(w, r)
}

func (siw *ServerInterfaceWrapper) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.GetWorkflow(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.UpdateWorkflow(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindID(w, r); ok {
		siw.Handler.DeleteWorkflow(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) ReceiveViziWebhook(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceiveViziWebhook(w, r)
}

func (siw *ServerInterfaceWrapper) ReceiveN8nWebhook(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceiveN8nWebhook(w, r)
}

func (siw *ServerInterfaceWrapper) ReceiveSupabaseAuthHook(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceiveSupabaseAuthHook(w, r)
}

func (siw *ServerInterfaceWrapper) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetDashboardStats(w, r)
}

func (siw *ServerInterfaceWrapper) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetQueueStats(w, r)
}

func (siw *ServerInterfaceWrapper) SearchLogs(w http.ResponseWriter, r *http.Request) {
	var params SearchLogsParams

	query := r.URL.Query()

	for _, binding := range []struct {
		name string
		dest any
	}{
		{"page", &params.Page},
		{"per_page", &params.PerPage},
		{"level", &params.Level},
		{"source", &params.Source},
		{"queue", &params.Queue},
		{"order_id", &params.OrderID},
		{"q", &params.Q},
		{"since", &params.Since},
	} {
		if err := runtime.BindQueryParameter("form", true, false, binding.name, query, binding.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: binding.name, Err: err})

			return
		}
	}

	siw.Handler.SearchLogs(w, r, params)
}

func (siw *ServerInterfaceWrapper) ListScraperJobs(w http.ResponseWriter, r *http.Request) {
	var params ListScraperJobsParams

	if !siw.bindPage(w, r, &params.Page, &params.PerPage) {
		return
	}

	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &params.Status); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "status", Err: err})

		return
	}

	siw.Handler.ListScraperJobs(w, r, params)
}

func (siw *ServerInterfaceWrapper) CreateScraperJob(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateScraperJob(w, r)
}

func (siw *ServerInterfaceWrapper) LookupAirtableRecord(w http.ResponseWriter, r *http.Request) {
	var params LookupAirtableRecordParams

	query := r.URL.Query()

	for _, name := range []string{"field", "value"} {
		if _, found := query[name]; !found {
			siw.ErrorHandlerFunc(w, r, &RequiredParamError{ParamName: name})

			return
		}
	}

	if err := runtime.BindQueryParameter("form", true, true, "field", query, &params.Field); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "field", Err: err})

		return
	}

	if err := runtime.BindQueryParameter("form", true, true, "value", query, &params.Value); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "value", Err: err})

		return
	}

	if err := runtime.BindQueryParameter("form", true, false, "view", query, &params.View); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "view", Err: err})

		return
	}

	siw.Handler.LookupAirtableRecord(w, r, params)
}

func (siw *ServerInterfaceWrapper) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	siw.Handler.InvalidateCache(w, r)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID

	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})

		return uuid.Nil, false
	}

	return id, true
}

func (siw *ServerInterfaceWrapper) bindPage(w http.ResponseWriter, r *http.Request, page, perPage **int) bool {
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "page", query, page); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page", Err: err})

		return false
	}

	if err := runtime.BindQueryParameter("form", true, false, "per_page", query, perPage); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "per_page", Err: err})

		return false
	}

	return true
}
