package ports

import (
	"context"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type (
	// JobQueue publishes jobs straight to the broker.
	JobQueue interface {
		Enqueue(ctx context.Context, job *domain.Job) error
	}

	QueueInspector interface {
		Stats(ctx context.Context, queue domain.QueueName) (domain.QueueStats, error)
	}

	// JobProcessor runs one kind of job.
	JobProcessor interface {
		Process(ctx context.Context, job *domain.Job) (map[string]any, error)
	}
)
