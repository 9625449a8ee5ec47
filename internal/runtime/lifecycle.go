package runtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

// notifyShutdown routes SIGINT and SIGTERM into ch.
func notifyShutdown(ch chan os.Signal) {
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
}

// watchConfig logs the outcome of every config reload until ctx is done.
func watchConfig(ctx context.Context, loader *config.Loader, logger infrastructure.Logger) {
	reloadErrors := loader.WatchConfigSignals(ctx)

	go func() {
		for err := range reloadErrors {
			if err != nil {
				logger.Error().Err(err).Msg("failed to reload config")

				continue
			}

			logger.Info().Msg("config reloaded successfully")
		}

		logger.Info().Msg("stopping config monitor")
	}()
}

// release closes every client a role opened, in reverse order of creation.
func (d *Dependencies) release(ctx context.Context) {
	d.logger.Info().Msg("cleaning up resources...")

	if d.Infra.QueueClient != nil {
		if err := d.Infra.QueueClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close queue")
		}
	}

	if d.Infra.CacheClient != nil {
		if err := d.Infra.CacheClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close cache connection")
		}
	}

	if d.Infra.StorageClient != nil {
		if err := d.Infra.StorageClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close storage")
		}
	}

	if d.Infra.Metrics != nil {
		if err := d.Infra.Metrics.Shutdown(ctx); err != nil {
			d.logger.Error().Err(err).Msg("failed to flush metrics")
		}
	}

	if d.tracerShutdownFunc != nil {
		if err := d.tracerShutdownFunc(ctx); err != nil {
			d.logger.Error().Err(err).Msg("failed to flush traces")
		}
	}

	d.logger.Info().Msg("cleanup completed")
}
