package mappers

import (
	"strings"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/domain"
)

func CreateOrderRequestToDomain(req handlers.CreateOrderRequest) *domain.Order {
	return &domain.Order{
		OrderID:       strings.TrimSpace(req.OrderID),
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		Country:       req.Country,
		VisaType:      req.VisaType,
		TravelDate:    req.TravelDate,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		Source:        req.Source,
		Metadata:      req.Metadata,
	}
}

func UpdateOrderRequestToPatch(req handlers.UpdateOrderRequest) domain.OrderPatch {
	patch := domain.OrderPatch{
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Country:     req.Country,
		VisaType:    req.VisaType,
		TravelDate:  req.TravelDate,
		Amount:      req.Amount,
		Metadata:    req.Metadata,
	}

	if req.Currency != nil {
		currency := strings.ToUpper(*req.Currency)
		patch.Currency = &currency
	}

	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		patch.Status = &status
	}

	if req.PaymentStatus != nil {
		paymentStatus := domain.PaymentStatus(*req.PaymentStatus)
		patch.PaymentStatus = &paymentStatus
	}

	return patch
}

func ListOrdersParamsToFilter(params handlers.ListOrdersParams) domain.OrderFilter {
	return domain.OrderFilter{
		Status:        domain.OrderStatus(deref(params.Status)),
		PaymentStatus: domain.PaymentStatus(deref(params.PaymentStatus)),
		Country:       deref(params.Country),
		Source:        deref(params.Source),
		Search:        strings.TrimSpace(deref(params.Search)),
		CreatedFrom:   params.CreatedFrom,
		CreatedTo:     params.CreatedTo,
	}
}

func SearchLogsParamsToFilter(params handlers.SearchLogsParams) domain.LogFilter {
	return domain.LogFilter{
		Level:   domain.LogLevel(deref(params.Level)),
		Source:  deref(params.Source),
		Queue:   deref(params.Queue),
		OrderID: deref(params.OrderID),
		Query:   strings.TrimSpace(deref(params.Q)),
		Since:   params.Since,
	}
}

// PageRequest applies the default and maximum page sizes.
func PageRequest(page, perPage *int) domain.PageRequest {
	var p, pp int

	if page != nil {
		p = *page
	}

	if perPage != nil {
		pp = *perPage
	}

	return domain.NewPageRequest(p, pp)
}

func CreateWorkflowRequestToDomain(req handlers.CreateWorkflowRequest) *domain.Workflow {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return &domain.Workflow{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Trigger:     domain.WorkflowTrigger(req.Trigger),
		Config:      req.Config,
		Enabled:     enabled,
	}
}

func UpdateWorkflowRequestToPatch(req handlers.UpdateWorkflowRequest) domain.WorkflowPatch {
	patch := domain.WorkflowPatch{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Enabled:     req.Enabled,
	}

	if req.Trigger != nil {
		trigger := domain.WorkflowTrigger(*req.Trigger)
		patch.Trigger = &trigger
	}

	return patch
}

func CreateScraperJobRequestToDomain(req handlers.CreateScraperJobRequest) *domain.ScraperJob {
	return &domain.ScraperJob{
		OrderID:   req.OrderID,
		TargetURL: strings.TrimSpace(req.TargetURL),
		Selector:  req.Selector,
	}
}

func LookupParamsToDomain(params handlers.LookupAirtableRecordParams) domain.AirtableLookupRequest {
	return domain.AirtableLookupRequest{
		Field: params.Field,
		Value: strings.TrimSpace(params.Value),
		View:  deref(params.View),
	}
}

func JobToAccepted(job *domain.Job) handlers.JobAccepted {
	return handlers.JobAccepted{
		JobID: job.ID,
		Name:  job.Name,
		Queue: job.Queue.String(),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}
