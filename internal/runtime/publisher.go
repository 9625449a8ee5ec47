package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const publisherDrainTimeout = 10 * time.Second

// PublisherCtx runs the publisher role: the outbox relay moving committed jobs onto the broker.
type PublisherCtx struct {
	deps *Dependencies

	shutdownChannel chan os.Signal

	relayCtx  context.Context
	stopRelay context.CancelFunc

	relayDone chan struct{}
}

func NewPublisher(opt ...PublisherOption) *PublisherCtx {
	pCtx := &PublisherCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](pCtx)
	}

	return pCtx
}

func (c *PublisherCtx) Run() {
	c.build()
	c.start()
	watchConfig(c.relayCtx, c.deps.configLoader, c.deps.logger)
	notifyShutdown(c.shutdownChannel)
	c.shutdown()
}

func (c *PublisherCtx) build() {
	c.relayCtx, c.stopRelay = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.relayCtx, WithPublisher())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	c.deps = deps
	c.relayDone = make(chan struct{})
}

func (c *PublisherCtx) start() {
	go func() {
		defer close(c.relayDone)

		c.deps.logger.Info().
			Dur("poll_interval", c.deps.cfg.Outbox.PollInterval).
			Int("batch_size", c.deps.cfg.Outbox.BatchSize).
			Str("exchange", c.deps.cfg.Queue.ExchangeName).
			Msg("outbox relay started")

		if err := c.deps.Workers.OutboxProcessor.Start(c.relayCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.deps.logger.Error().Err(err).Msg("outbox relay stopped unexpectedly")
			c.stopRelay()
		}
	}()
}

func (c *PublisherCtx) shutdown() {
	select {
	case <-c.relayCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.deps.logger.Info().Msg("publisher shutting down")

	c.stopRelay()

	// Let the batch in flight settle before the broker connection goes away.
	select {
	case <-c.relayDone:
	case <-time.After(publisherDrainTimeout):
		c.deps.logger.Warn().Dur("timeout", publisherDrainTimeout).Msg("outbox batch still in flight, releasing anyway")
	}

	releaseCtx, cancel := context.WithTimeout(context.Background(), publisherDrainTimeout)
	defer cancel()

	c.deps.release(releaseCtx)

	c.deps.logger.Info().Msg("publisher stopped")
}
