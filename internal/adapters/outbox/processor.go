package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/usecases"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 10
)

var _ ports.BackgroundProcessor = (*Processor)(nil)

// Processor relays committed outbox events to the job queues.
type Processor struct {
	app          *usecases.PublisherApplication
	pollInterval time.Duration
	batchSize    int
	logger       infrastructure.Logger
}

func NewProcessor(
	app *usecases.PublisherApplication,
	cfg config.OutboxConfig,
	logger infrastructure.Logger,
) *Processor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Processor{
		app:          app,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger.Component("outbox-processor"),
	}
}

func (p *Processor) Start(ctx context.Context) error {
	p.logger.Info().
		Dur("poll_interval", p.pollInterval).
		Int("batch_size", p.batchSize).
		Msg("starting outbox processor")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox processor shutting down")

			return ctx.Err()

		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick relays one batch of pending and one batch of retryable events.
func (p *Processor) Tick(ctx context.Context) {
	var wg sync.WaitGroup

	for _, kind := range []domain.OutboxBatchKind{domain.OutboxBatchPending, domain.OutboxBatchRetryable} {
		wg.Go(func() {
			if err := p.drain(ctx, kind); err != nil {
				p.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to drain outbox batch")
			}
		})
	}

	wg.Wait()
}

func (p *Processor) drain(ctx context.Context, kind domain.OutboxBatchKind) error {
	events, err := p.app.Queries.FetchOutboxBatch.Execute(ctx, queries.FetchOutboxBatchQuery{
		Kind: kind,
		Size: p.batchSize,
	})
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	p.logger.Debug().Str("kind", string(kind)).Int("count", len(events)).Msg("relaying outbox batch")

	var wg sync.WaitGroup

	for _, event := range events {
		wg.Go(func() {
			result, err := p.app.Commands.RelayOutboxEvent.Handle(ctx, commands.RelayOutboxEventCommand{Event: event})
			if err != nil {
				p.logger.Error().
					Err(err).
					Str("kind", string(kind)).
					Str("event_id", event.ID.String()).
					Msg("failed to relay outbox event")

				return
			}

			if !result.Published {
				p.logger.Debug().
					Str("event_id", event.ID.String()).
					Str("reason", result.Reason).
					Msg("outbox event not relayed")
			}
		})
	}

	wg.Wait()

	return nil
}
