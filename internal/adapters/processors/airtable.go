package processors

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// TrackerCursor names the cursor holding the newest completed timestamp seen.
const TrackerCursor = "airtable.completed"

// AirtableTrackerProcessor marks the orders Airtable reports completed.
type AirtableTrackerProcessor struct {
	client  ports.AirtableClient
	orders  ports.OrderRepository
	cursors ports.CursorStore
	logger  infrastructure.Logger
}

func NewAirtableTrackerProcessor(
	client ports.AirtableClient,
	orders ports.OrderRepository,
	cursors ports.CursorStore,
	logger infrastructure.Logger,
) *AirtableTrackerProcessor {
	return &AirtableTrackerProcessor{
		client:  client,
		orders:  orders,
		cursors: cursors,
		logger:  logger.Component("airtable-tracker"),
	}
}

// Process runs incrementally from the stored cursor, an empty mode without a cursor bootstraps.
func (p *AirtableTrackerProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.AirtableTrackPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	mode, since, err := p.resolveWindow(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := p.client.TrackCompleted(ctx, mode, since)
	if err != nil {
		return nil, classifyAirtableError(err)
	}

	orderIDs := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		if id := strings.TrimSpace(record.StringField(domain.AirtableOrderIDField)); id != "" {
			orderIDs = append(orderIDs, id)
		}
	}

	marked, err := p.orders.MarkCompletedByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to mark orders completed", err)
	}

	data := map[string]any{
		"mode":          mode,
		"records":       len(result.Records),
		"marked_orders": len(marked),
	}

	if result.NewestCompletedAt != nil {
		cursor := result.NewestCompletedAt.UTC().Format(domain.AirtableTimestampLayout)
		data["newest_completed_at"] = cursor

		if err := p.cursors.SetCursor(ctx, TrackerCursor, cursor); err != nil {
			p.logger.Warn().Err(err).Str("cursor", cursor).Msg("failed to store tracker cursor")
		}
	}

	p.logger.Info().
		Str("mode", mode).
		Int("records", len(result.Records)).
		Int("marked_orders", len(marked)).
		Msg("completed orders tracked")

	return data, nil
}

func (p *AirtableTrackerProcessor) resolveWindow(
	ctx context.Context,
	payload domain.AirtableTrackPayload,
) (string, *time.Time, error) {
	if payload.Mode == domain.TrackerModeBootstrap {
		return payload.Mode, nil, nil
	}

	if payload.Since != nil {
		return domain.TrackerModeIncremental, payload.Since, nil
	}

	cursor, err := p.cursors.GetCursor(ctx, TrackerCursor)
	if err != nil {
		return "", nil, retryable(codeCacheFailed, "failed to read tracker cursor", err)
	}

	if cursor == "" {
		if payload.Mode == domain.TrackerModeIncremental {
			return "", nil, domain.PermanentJobError(codeAirtableRejected, "no cursor stored for an incremental run", nil)
		}

		return domain.TrackerModeBootstrap, nil, nil
	}

	since, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return "", nil, domain.PermanentJobError(codeAirtableRejected, "stored tracker cursor is not a timestamp", err)
	}

	return domain.TrackerModeIncremental, &since, nil
}

func classifyAirtableError(err error) error {
	var airtableErr *domain.AirtableError
	if errors.As(err, &airtableErr) {
		switch airtableErr.Code {
		case domain.AirtableInputError, domain.AirtableConfigurationError:
			return domain.PermanentJobError(codeAirtableRejected, airtableErr.Message, err)
		}
	}

	return retryable(codeAirtableFailed, "failed to read completed records", err)
}
