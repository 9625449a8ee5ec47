package decorator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type commandMetricsDecorator[C any, R any] struct {
	base   CommandHandler[C, R]
	client MetricsClient
}

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	start := time.Now()

	defer func() {
		record(d.client, "commands", actionName(cmd), start, err)
	}()

	return d.base.Handle(ctx, cmd)
}

type queryMetricsDecorator[Q any, R any] struct {
	base   QueryHandler[Q, R]
	client MetricsClient
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	start := time.Now()

	defer func() {
		record(d.client, "queries", actionName(query), start, err)
	}()

	return d.base.Execute(ctx, query)
}

func record(client MetricsClient, kind, action string, start time.Time, err error) {
	if client == nil {
		return
	}

	action = strings.ToLower(action)

	client.Inc(fmt.Sprintf("%s.%s.duration_ms", kind, action), int(time.Since(start).Milliseconds()))

	if err == nil {
		client.Inc(fmt.Sprintf("%s.%s.success", kind, action), 1)

		return
	}

	client.Inc(fmt.Sprintf("%s.%s.failure", kind, action), 1)
}
