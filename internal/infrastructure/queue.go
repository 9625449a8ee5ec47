package infrastructure

import (
	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/pkg/queue"
)

type Queue = queue.Queue

func NewQueue(cfg config.QueueConfig, logger Logger) *queue.RabbitMQQueue {
	return queue.NewRabbitMQQueue(
		queue.Config{
			Username:       cfg.Username,
			Password:       cfg.Password,
			Host:           cfg.Host,
			Port:           cfg.Port,
			Vhost:          cfg.VirtualHost,
			TLS:            cfg.TLS,
			Heartbeat:      cfg.Heartbeat,
			ConnectionName: cfg.ConnectionName,
		},
		queue.WithLogger(queue.NewZerologAdapter(logger.Component("rabbitmq").Logger)),
		queue.WithConnectionTimeout(cfg.ConnectTimeout),
	)
}
