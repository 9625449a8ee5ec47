package runtime

import (
	"os"
)

type (
	ServiceOption func(*ServiceCtx)

	PublisherOption func(*PublisherCtx)

	SubscriberOption func(*SubscriberCtx)
)

// WithServiceTermination lets the caller stop the API role by sending on ch.
func WithServiceTermination(ch chan os.Signal) ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.shutdownChannel = ch
	}
}

// WithWaitingForServer makes the API role signal once its listener accepts connections.
func WithWaitingForServer() ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.serverReady = make(chan struct{})
	}
}

func WithPublisherTermination(ch chan os.Signal) PublisherOption {
	return func(ctx *PublisherCtx) {
		ctx.shutdownChannel = ch
	}
}

func WithSubscriberTermination(ch chan os.Signal) SubscriberOption {
	return func(ctx *SubscriberCtx) {
		ctx.shutdownChannel = ch
	}
}

// WithSubscriberQueues restricts the worker to the named job queues, overriding WORKER_QUEUES.
func WithSubscriberQueues(names ...string) SubscriberOption {
	return func(ctx *SubscriberCtx) {
		ctx.queues = append(ctx.queues[:0], names...)
	}
}
