package ports

import (
	"context"

	"github.com/architeacher/svc-visa-processing/pkg/queue"
)

type (
	// BackgroundProcessor is a loop a role keeps running until ctx ends, e.g. the outbox relay.
	BackgroundProcessor interface {
		Start(ctx context.Context) error
	}

	// MessageHandler turns deliveries of one job queue into JobProcessor runs and settles them.
	MessageHandler interface {
		ProcessMessage(ctx context.Context, msg queue.Message, ctrl *queue.MsgController) error
	}
)
