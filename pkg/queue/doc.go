// Package queue is a RabbitMQ client built on amqp091-go for job queues that need
// priorities, delayed retries and a dead letter queue.
//
// # Topology
//
// DeclareTopology creates these durable queues for a name:
//
//   - <name>: the work queue, declared with x-max-priority. Rejected or nacked
//     deliveries are dead-lettered to <name>.dlq.
//   - <name>.retry.<tier>: holding queues without consumers, one per RetryTiers entry
//     (pdf.retry.5s, pdf.retry.1h, ...). Each has a queue level x-message-ttl and
//     dead-letters back to <name> through the default exchange once it elapses.
//   - <name>.dlq: terminal storage for messages that will not be processed again.
//
// The work queue is bound to the given exchange with the queue name as routing key.
//
// Expired messages only leave a queue from its head. Keeping one TTL per retry queue
// means a message never waits behind a longer delay. A delay is rounded up to the
// next tier and capped at the last one.
//
// # Basic Usage
//
//	q := queue.NewRabbitMQQueue(cfg, queue.WithLogger(queue.NewZerologAdapter(log)))
//	if err := q.Connect(); err != nil {
//		return err
//	}
//	defer q.Close()
//
//	if err := q.DeclareTopology("jobs", "pdf", 10); err != nil {
//		return err
//	}
//
//	err := q.Publish(ctx, "jobs", "pdf", job, queue.WithPriority(5))
//
// Consuming messages:
//
//	handler := func(ctx context.Context, msg queue.Message, ctrl *queue.MsgController) error {
//		var job Job
//		if err := msg.Unmarshal(&job); err != nil {
//			return ctrl.DeadLetter(msg, err.Error())
//		}
//
//		if err := run(ctx, job); err != nil {
//			job.Attempts++
//			msg.Body = job
//
//			return ctrl.Retry(msg, 5*time.Second)
//		}
//
//		return ctrl.Ack(msg)
//	}
//
//	err := q.Consume(ctx, "pdf", "worker-1", handler, queue.WithPrefetch(8), queue.WithConcurrency(4))
//
// Inspect reads the depth of the work, retry and dead letter queues with passive declares.
package queue
