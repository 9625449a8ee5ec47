package processors

import (
	"context"
	"strings"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

type (
	EmailProcessor struct {
		mailer ports.Mailer
	}

	AlertProcessor struct {
		alerter ports.Alerter
	}

	CacheInvalidateProcessor struct {
		cache  ports.CacheService
		logger infrastructure.Logger
	}
)

func NewEmailProcessor(mailer ports.Mailer) *EmailProcessor {
	return &EmailProcessor{mailer: mailer}
}

func (p *EmailProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.EmailPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	messageID, err := p.mailer.Send(ctx, payload)
	if err != nil {
		return nil, retryable(codeEmailFailed, "failed to send email", err)
	}

	return map[string]any{
		"message_id": messageID,
		"recipients": len(payload.To),
	}, nil
}

func NewAlertProcessor(alerter ports.Alerter) *AlertProcessor {
	return &AlertProcessor{alerter: alerter}
}

func (p *AlertProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.OpsAlertPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.Subject) == "" && strings.TrimSpace(payload.Message) == "" {
		return nil, domain.PermanentJobError("EMPTY_ALERT", "alert has neither subject nor message", nil)
	}

	if err := p.alerter.Alert(ctx, payload); err != nil {
		return nil, retryable(codeAlertFailed, "failed to publish alert", err)
	}

	return map[string]any{"subject": payload.Subject}, nil
}

func NewCacheInvalidateProcessor(cache ports.CacheService, logger infrastructure.Logger) *CacheInvalidateProcessor {
	return &CacheInvalidateProcessor{
		cache:  cache,
		logger: logger.Component("cache-invalidate-processor"),
	}
}

func (p *CacheInvalidateProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.CacheInvalidatePayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	if len(payload.Patterns) == 0 {
		return nil, domain.PermanentJobError("NO_PATTERNS", "no cache patterns given", nil)
	}

	var deleted int64

	for _, pattern := range payload.Patterns {
		count, err := p.cache.DeletePattern(ctx, pattern)
		if err != nil {
			return nil, retryable(codeCacheFailed, "failed to delete cache pattern "+pattern, err)
		}

		deleted += count
	}

	p.logger.Debug().
		Strs("patterns", payload.Patterns).
		Int64("deleted", deleted).
		Msg("cache patterns invalidated")

	return map[string]any{
		"patterns": len(payload.Patterns),
		"deleted":  deleted,
	}, nil
}
