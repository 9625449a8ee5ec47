// Package processors holds the job processors run by the worker role, one per job name.
package processors

import (
	"errors"
	"strings"

	"github.com/architeacher/svc-visa-processing/internal/adapters/cbb"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const (
	codeNoPhone           = "NO_PHONE"
	codeMessagingRejected = "MESSAGING_REJECTED"
	codeMessagingFailed   = "MESSAGING_FAILED"
	codeStorageFailed     = "STORAGE_FAILED"
	codeDatabaseFailed    = "DATABASE_FAILED"
	codeEmailFailed       = "EMAIL_FAILED"
	codeAlertFailed       = "ALERT_FAILED"
	codeCacheFailed       = "CACHE_FAILED"
	codeAirtableRejected  = "AIRTABLE_REJECTED"
	codeAirtableFailed    = "AIRTABLE_FAILED"
	codeTemplateFailed    = "TEMPLATE_FAILED"
)

// permanentMessagingMarkers are CBB error texts no retry can fix.
var permanentMessagingMarkers = []string{
	"invalid phone",
	"not a whatsapp",
	"blocked",
	"opted out",
}

type (
	// JobBuilder creates follow-up jobs with the configured queue options.
	JobBuilder interface {
		Job(name string, queue domain.QueueName, payload any, override domain.JobOptions) (*domain.Job, error)
	}

	Dependencies struct {
		Orders      ports.OrderRepository
		ScraperJobs ports.ScraperJobRepository
		Messaging   ports.MessagingClient
		Renderer    ports.PDFRenderer
		Documents   ports.DocumentStore
		Mailer      ports.Mailer
		Alerter     ports.Alerter
		Scraper     ports.PortalScraper
		Cache       ports.CacheService
		Cursors     ports.CursorStore
		Airtable    ports.AirtableClient
		Queue       ports.JobQueue
		Jobs        JobBuilder
		Logger      infrastructure.Logger
	}
)

// NewRegistry maps every job name onto its processor.
func NewRegistry(deps Dependencies) map[string]ports.JobProcessor {
	return map[string]ports.JobProcessor{
		domain.JobWhatsAppSend:           NewWhatsAppProcessor(deps.Messaging, deps.Orders, deps.Logger),
		domain.JobPDFGenerate:            NewPDFProcessor(deps.Orders, deps.Renderer, deps.Documents, deps.Queue, deps.Jobs, deps.Logger),
		domain.JobScraperRun:             NewScraperProcessor(deps.ScraperJobs, deps.Orders, deps.Scraper, deps.Logger),
		domain.JobCBBSyncContact:         NewCBBSyncProcessor(deps.Orders, deps.Messaging, deps.Logger),
		domain.JobEmailSend:              NewEmailProcessor(deps.Mailer),
		domain.JobOpsAlert:               NewAlertProcessor(deps.Alerter),
		domain.JobCacheInvalidate:        NewCacheInvalidateProcessor(deps.Cache, deps.Logger),
		domain.JobAirtableTrackCompleted: NewAirtableTrackerProcessor(deps.Airtable, deps.Orders, deps.Cursors, deps.Logger),
	}
}

// classifyMessagingError marks CBB rejections and known recipient problems permanent.
func classifyMessagingError(message string, err error) error {
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		return err
	}

	if errors.Is(err, domain.ErrCircuitBreakerOpen) {
		return domain.RetryableJobError(domain.CodeCircuitOpen, message, err)
	}

	if cbb.IsPermanent(err) {
		return domain.PermanentJobError(codeMessagingRejected, message, err)
	}

	text := strings.ToLower(err.Error())
	for _, marker := range permanentMessagingMarkers {
		if strings.Contains(text, marker) {
			return domain.PermanentJobError(codeMessagingRejected, message, err)
		}
	}

	return domain.RetryableJobError(codeMessagingFailed, message, err)
}

// retryable keeps an already classified error and marks anything else retryable.
func retryable(code, message string, err error) error {
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) || domain.IsPermanent(err) {
		return err
	}

	return domain.RetryableJobError(code, message, err)
}
